package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/deck-narrator/internal/config"
	"github.com/lexiqai/deck-narrator/internal/observability"
	"github.com/lexiqai/deck-narrator/internal/pptx"
	"github.com/lexiqai/deck-narrator/internal/scratch"
	"github.com/lexiqai/deck-narrator/internal/tts"
	"github.com/spf13/cobra"
)

func newCheckCmd(o *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that a narration run can start",
		Long: `check opens the input presentation, creates and removes a scratch
directory, calls the speech service with the subscription key and looks the
voice up in the voice list. It exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := observability.CheckReadiness(cmd.Context(), o.cfg.RequestTimeout(), readinessChecks(o.cfg))
			if err := writeOutput(cmd.OutOrStdout(), status, asJSON); err != nil {
				return err
			}
			if !status.Ready() {
				return errors.New("narration is not ready")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// readinessChecks builds the checks run by "narrate check". The voice check
// reuses the list fetched by the speech_service check, which runs first.
func readinessChecks(cfg *config.Config) map[string]observability.HealthCheckFunc {
	var voices []tts.Voice

	return map[string]observability.HealthCheckFunc{
		"presentation": func(ctx context.Context) (bool, error) {
			pres, err := pptx.Open(cfg.InputFile)
			if err != nil {
				return false, err
			}
			defer pres.Close()
			if pres.SlideCount() == 0 {
				return false, fmt.Errorf("%s has no slides", cfg.InputFile)
			}
			return true, nil
		},
		"scratch": func(ctx context.Context) (bool, error) {
			dir, err := scratch.AcquireIn(cfg.ScratchDir, "narrate-check")
			if err != nil {
				return false, err
			}
			return true, dir.Release()
		},
		"speech_service": func(ctx context.Context) (bool, error) {
			if cfg.SubscriptionKey == "" {
				return false, config.ErrMissingSubscriptionKey
			}
			list, err := tts.NewAzureClient(cfg).ListVoices(ctx)
			if err != nil {
				return false, keyHint(err, cfg.Region)
			}
			voices = list
			return true, nil
		},
		"voice": func(ctx context.Context) (bool, error) {
			if voices == nil {
				return false, errors.New("voice list unavailable")
			}
			for _, v := range voices {
				if v.ShortName == cfg.VoiceName {
					return true, nil
				}
			}
			return false, fmt.Errorf("voice %s is not offered in region %s", cfg.VoiceName, cfg.Region)
		},
	}
}

// keyHint points at the subscription key when the service rejected it
func keyHint(err error, region string) error {
	if apiErr, ok := tts.AsAPIError(err); ok && apiErr.IsInvalidKey() {
		return fmt.Errorf("subscription key rejected for region %s, check --subscription_key and --region: %w", region, err)
	}
	return err
}
