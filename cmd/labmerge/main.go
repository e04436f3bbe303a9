package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/labmerge/internal/config"
	"stealthcompany.com/labmerge/pkg/zerolog_config"
)

const logIndex = "labmerge-logs"

// app carries state shared by every subcommand once the root command has
// loaded configuration
type app struct {
	configFile string
	logLevel   string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("labmerge failed")
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "labmerge",
		Short:         "Merge laboratory exam exports into one dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "optional config file (env, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(lookupCmd(a))
	rootCmd.AddCommand(planCmd(a))
	return rootCmd
}

func (a *app) setup() error {
	config.LoadDotEnv()

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	zerolog_config.SetAppPrefix("labmerge")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, logIndex, cfg.LogLevel); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}
