package commands

import (
	"sort"
	"strings"

	"github.com/lexiqai/deck-narrator/internal/config"
	"github.com/lexiqai/deck-narrator/internal/tts"
	"github.com/spf13/cobra"
)

func newVoicesCmd(o *options) *cobra.Command {
	var (
		locale string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voices offered in the speech region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.cfg.SubscriptionKey == "" {
				return config.ErrMissingSubscriptionKey
			}

			voices, err := tts.NewAzureClient(o.cfg).ListVoices(cmd.Context())
			if err != nil {
				return keyHint(err, o.cfg.Region)
			}
			voices = filterVoices(voices, locale)

			o.logger.Debug().Int("count", len(voices)).Str("locale", locale).Msg("voices listed")
			return writeOutput(cmd.OutOrStdout(), voices, asJSON)
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "only list voices of this locale, e.g. en-GB")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// filterVoices keeps voices of locale (case-insensitive), sorted by short name
func filterVoices(voices []tts.Voice, locale string) []tts.Voice {
	out := make([]tts.Voice, 0, len(voices))
	for _, v := range voices {
		if locale == "" || strings.EqualFold(v.Locale, locale) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ShortName < out[j].ShortName
	})
	return out
}
