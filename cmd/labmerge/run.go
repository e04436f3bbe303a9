package main

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/labmerge/internal/couchbase"
	"stealthcompany.com/labmerge/internal/orchestrator"
	"stealthcompany.com/labmerge/internal/pipeline"
)

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load both laboratory sources, merge, sort and save the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				a.cfg.OutputPath = output
			}
			if mode, _ := cmd.Flags().GetString("output-mode"); mode != "" {
				a.cfg.OutputMode = mode
			}
			if policy, _ := cmd.Flags().GetString("age-policy"); policy != "" {
				a.cfg.AgePolicy = policy
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			opts, err := pipeline.OptionsFromConfig(a.cfg)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			logger := log.With().Str("run_id", runID).Logger()
			logger.Info().Msg("Starting labmerge run")

			ctx, stop := orchestrator.WithShutdownSignals(cmd.Context())
			defer stop()

			var exporter pipeline.Exporter
			if a.cfg.CouchbaseURL != "" {
				client, err := couchbase.NewClient(
					a.cfg.CouchbaseURL,
					a.cfg.CouchbaseUsername,
					a.cfg.CouchbasePassword,
					a.cfg.CouchbaseBucket,
					runID,
				)
				if err != nil {
					return err
				}
				defer func() {
					if err := client.Close(); err != nil {
						logger.Error().Err(err).Msg("Failed to close Couchbase connection")
					}
				}()
				exporter = client
			}

			report, err := pipeline.New(opts, logger, exporter).Run(ctx)
			if err != nil {
				return err
			}

			logger.Info().
				Int("lab_a", report.SourceASize).
				Int("lab_b", report.SourceBSize).
				Int("merged", report.MergedSize).
				Int("exported", report.Exported).
				Str("output", report.OutputPath).
				Msg("labmerge run finished")
			return nil
		},
	}

	cmd.Flags().String("output", "", "override OUTPUT_PATH")
	cmd.Flags().String("output-mode", "", "override OUTPUT_MODE (flat or grouped)")
	cmd.Flags().String("age-policy", "", "override AGE_POLICY (strict or nullable)")
	return cmd
}
