// Command imrcast trains the infant mortality rate regressors on a dataset
// and scores single observations with the persisted model.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/imrcast/config"
	"github.com/YuminosukeSato/imrcast/pkg/log"
)

var (
	v          = config.NewViper()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "imrcast",
	Short:         "Estimate infant mortality rate from country indicators",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", config.Default().LogLevel, "log level: debug, info, warn, error")
	flags.String("output", config.Default().Output, "artifact and plot directory")
	mustBind(v, "log_level", flags.Lookup("log-level"))
	mustBind(v, "output", flags.Lookup("output"))

	rootCmd.AddCommand(trainCmd, predictCmd)
}

// loadConfig resolves the effective settings and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.GetLogger().Error("imrcast failed", err)
		os.Exit(1)
	}
}
