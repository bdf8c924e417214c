package commands

import (
	"context"
	"fmt"

	"github.com/lexiqai/deck-narrator/internal/config"
	"github.com/lexiqai/deck-narrator/internal/narrator"
	"github.com/lexiqai/deck-narrator/internal/observability"
	"github.com/lexiqai/deck-narrator/internal/pptx"
	"github.com/lexiqai/deck-narrator/internal/tts"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options holds flag values and the configuration they resolve to
type options struct {
	subscriptionKey string
	input           string
	output          string
	voice           string
	region          string
	strict          bool
	maxFailures     int
	breakerReset    int
	metricsFile     string
	logLevel        string
	logPretty       bool

	cfg    *config.Config
	logger zerolog.Logger
}

// Execute runs the CLI with the given context; cancelling it aborts a run
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Add spoken narration to a PowerPoint deck",
		Long: `narrate reads the speaker notes of every slide in a .pptx file, synthesizes
them with Azure Speech and embeds one auto-playing audio clip per slide into a
new presentation.

Slides whose synthesis fails are left without narration unless --strict is set.

Examples:
  # Narrate test.pptx into out.pptx
  narrate -s $AZURE_SPEECH_KEY

  # Pick files and voice
  narrate -s KEY -i deck.pptx -o narrated.pptx -v en-US-JennyNeural

  # List German voices
  narrate voices -s KEY --locale de-DE
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runNarrate(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.subscriptionKey, "subscription_key", "s", "", "Azure speech subscription key (required; env AZURE_SPEECH_KEY)")
	flags.StringVarP(&o.input, "ppt_input_filename", "i", "test.pptx", "input PowerPoint file")
	flags.StringVarP(&o.output, "ppt_output_filename", "o", "out.pptx", "output PowerPoint file")
	flags.StringVarP(&o.voice, "voice_name", "v", "en-GB-RyanNeural", "synthesis voice")
	flags.StringVar(&o.region, "region", "eastus", "Azure speech region")
	flags.BoolVar(&o.strict, "strict", false, "fail the run when a slide cannot be synthesized")
	flags.IntVar(&o.maxFailures, "max-consecutive-failures", 0, "stop calling the speech service after N failures in a row (0 disables)")
	flags.IntVar(&o.breakerReset, "breaker-reset", 0, "seconds before retrying the speech service after the breaker opens (0 keeps it open)")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus text metrics to this file at exit")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error, disabled")
	flags.BoolVar(&o.logPretty, "log-pretty", true, "human readable logs instead of JSON")

	cmd.AddCommand(newVoicesCmd(o))
	cmd.AddCommand(newCheckCmd(o))

	return cmd
}

// resolve loads the environment configuration and applies explicitly set flags over it
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("subscription_key") {
		cfg.SubscriptionKey = o.subscriptionKey
	}
	if flags.Changed("ppt_input_filename") {
		cfg.InputFile = o.input
	}
	if flags.Changed("ppt_output_filename") {
		cfg.OutputFile = o.output
	}
	if flags.Changed("voice_name") {
		cfg.VoiceName = o.voice
	}
	if flags.Changed("region") {
		cfg.Region = o.region
	}
	if flags.Changed("strict") {
		cfg.Strict = o.strict
	}
	if flags.Changed("max-consecutive-failures") {
		cfg.MaxConsecutiveFailures = o.maxFailures
	}
	if flags.Changed("breaker-reset") {
		cfg.BreakerReset = o.breakerReset
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.LogPretty = o.logPretty
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	o.cfg = cfg
	o.logger = observability.GetLogger()
	return nil
}

func (o *options) runNarrate(cmd *cobra.Command) error {
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := observability.NewRunID()
	logger := observability.WithRunID(runID)
	metrics := observability.NewMetrics()

	if cfg.MetricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Warn().Err(werr).Msg("failed to write metrics")
			}
		}()
	}

	logger.Info().
		Str("input", cfg.InputFile).
		Str("output", cfg.OutputFile).
		Str("voice", cfg.VoiceName).
		Str("speech_url", cfg.SpeechBaseURL()).
		Bool("strict", cfg.Strict).
		Msg("narration starting")

	n := narrator.New(tts.NewAzureClient(cfg), narrator.Options{
		Voice:                  cfg.VoiceName,
		Strict:                 cfg.Strict,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		BreakerResetTimeout:    cfg.BreakerResetTimeout(),
		ScratchParent:          cfg.ScratchDir,
		ScratchPrefix:          "narrate-" + runID[:8],
	}, logger, metrics)

	report, err := n.Run(cmd.Context(), cfg.InputFile, cfg.OutputFile)
	if err != nil {
		return describeRunError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "narrated %d of %d slides, wrote %s\n", report.Narrated, report.Slides, report.Output)
	for _, s := range report.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  slide %d skipped: %s\n", s.Index, s.Reason)
	}
	if report.Rejected > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d requests not sent after %d consecutive failures\n", report.Rejected, cfg.MaxConsecutiveFailures)
	}
	return nil
}

// describeRunError names the stage a run failed in
func describeRunError(err error) error {
	if e, ok := pptx.AsLoadError(err); ok {
		return fmt.Errorf("cannot read input presentation %s: %w", e.Path, err)
	}
	if e, ok := pptx.AsSaveError(err); ok {
		return fmt.Errorf("cannot write output presentation %s: %w", e.Path, err)
	}
	if e, ok := narrator.AsSynthesisError(err); ok {
		return fmt.Errorf("narration stopped at slide %d (--strict): %w", e.Slide, err)
	}
	return err
}
