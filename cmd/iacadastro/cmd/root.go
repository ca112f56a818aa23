// Package cmd implements the iacadastro command line.
package cmd

import (
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/lucasrcosta20/IA-Cadastro/config"
	"github.com/lucasrcosta20/IA-Cadastro/internal/app"
	"github.com/lucasrcosta20/IA-Cadastro/internal/platform/logger"
)

var (
	cfgFile string
	// Verbose enables debug logging
	Verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "iacadastro",
	Short:         "Generate commercial product descriptions with a local Ollama model",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		level := loaded.Log.Level
		if Verbose {
			level = "debug"
		}
		if err := logger.Setup(level, loaded.Log.Format); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// withApp builds the components for one command run and flushes the cache afterwards
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("failed to flush cache")
		}
	}()
	return fn(a)
}
