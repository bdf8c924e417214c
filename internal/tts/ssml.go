package tts

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	ssmlNamespace = "http://www.w3.org/2001/10/synthesis"
	defaultLocale = "en-US"
)

// BuildSSML wraps text in a speak document addressed to one voice.
// Text is escaped, never interpreted as markup.
func BuildSSML(text, voice string) ([]byte, error) {
	doc := etree.NewDocument()

	speak := doc.CreateElement("speak")
	speak.CreateAttr("version", "1.0")
	speak.CreateAttr("xmlns", ssmlNamespace)
	speak.CreateAttr("xml:lang", VoiceLocale(voice))

	v := speak.CreateElement("voice")
	v.CreateAttr("name", voice)
	v.SetText(text)

	return doc.WriteToBytes()
}

// VoiceLocale returns the locale prefix of a voice name such as
// en-GB-RyanNeural, or en-US when the name carries none.
func VoiceLocale(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) < 3 || !isLanguage(parts[0]) || parts[1] == "" {
		return defaultLocale
	}
	return parts[0] + "-" + parts[1]
}

func isLanguage(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
