package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/imrcast/artifact"
	"github.com/YuminosukeSato/imrcast/predict"
)

var predictCmd = &cobra.Command{
	Use:   "predict '<json object>'",
	Short: "Estimate the target for one observation with the persisted model",
	Example: `  imrcast predict '{"Birth Rate": 18.5, "Fertility Rate": 2.1, ...}'
  imrcast predict --positional '{"a": 1, "b": 2}'`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	flags := predictCmd.Flags()
	flags.Bool("positional", false, "take values in the given key order instead of matching feature names")
	mustBind(v, "positional", flags.Lookup("positional"))
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	obs, err := predict.ParseObservation([]byte(args[0]))
	if err != nil {
		return err
	}

	order := predict.OrderByName
	if cfg.Positional {
		order = predict.OrderPositional
	}
	store := artifact.NewFileStore(cfg.Output)
	estimate, err := predict.NewPredictor(store, predict.WithOrder(order)).Predict(obs)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), estimate)
	return nil
}
