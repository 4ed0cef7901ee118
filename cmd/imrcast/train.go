package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/imrcast/artifact"
	"github.com/YuminosukeSato/imrcast/config"
	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/feature"
	"github.com/YuminosukeSato/imrcast/pkg/log"
	"github.com/YuminosukeSato/imrcast/registry"
	"github.com/YuminosukeSato/imrcast/report"
	"github.com/YuminosukeSato/imrcast/training"
)

var trainCmd = &cobra.Command{
	Use:   "train <dataset.csv|dataset.xlsx>",
	Short: "Rank features, train every candidate and persist the selected model",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrain,
}

func init() {
	d := config.Default()
	flags := trainCmd.Flags()
	flags.String("target", d.Target, "target column")
	flags.Int("top-k", d.TopK, "number of top-correlated features to train on")
	flags.Int64("seed", d.Seed, "random seed for the split and the tree ensembles")
	flags.Float64("test-size", d.TestSize, "holdout fraction")
	flags.String("select", d.Select, "selection policy: fixed:<model name> or best:r2|mae|rmse")
	flags.Bool("no-plots", d.NoPlots, "skip the PNG report")
	mustBind(v, "target", flags.Lookup("target"))
	mustBind(v, "top_k", flags.Lookup("top-k"))
	mustBind(v, "seed", flags.Lookup("seed"))
	mustBind(v, "test_size", flags.Lookup("test-size"))
	mustBind(v, "select", flags.Lookup("select"))
	mustBind(v, "no_plots", flags.Lookup("no-plots"))
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.GetLogger().With(log.ComponentKey, "cli")

	ds, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}
	logger.Info("Dataset loaded",
		log.PathKey, filepath.Base(args[0]),
		log.SamplesKey, ds.NumRows(),
		log.FeaturesKey, ds.NumColumns(),
	)

	ranked, err := feature.NewSelector().Rank(ds, cfg.Target, cfg.TopK)
	if err != nil {
		return err
	}
	features := feature.Names(ranked)

	policy, err := training.ParsePolicy(cfg.Select)
	if err != nil {
		return err
	}
	reg := registry.Default(cfg.Seed)
	bar := progressbar.NewOptions(reg.Len(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("training"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	store := artifact.NewFileStore(cfg.Output, artifact.WithLockTimeout(cfg.LockTimeout))
	ev := training.NewEvaluator(store,
		training.WithRegistry(reg),
		training.WithSeed(cfg.Seed),
		training.WithTestSize(cfg.TestSize),
		training.WithPolicy(policy),
		training.WithProgress(func(name string, done, total int) {
			bar.Describe(name)
			bar.Add(1)
		}),
	)
	res, err := ev.Run(cmd.Context(), ds, cfg.Target, features)
	bar.Finish()
	if err != nil {
		return err
	}

	if err := renderMetrics(cmd, res); err != nil {
		return err
	}

	if !cfg.NoPlots {
		if _, err := report.NewWriter(cfg.Output).WriteAll(reportInput(res, cfg.Target)); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s (run %s)\n", res.Selected, cfg.Output, res.RunID)
	return nil
}

func renderMetrics(cmd *cobra.Command, res *training.Result) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Model", "MAE", "RMSE", "R2", "")
	for _, c := range res.Candidates {
		mark := ""
		if c.Name == res.Selected {
			mark = "selected"
		}
		if err := table.Append(c.Name,
			strconv.FormatFloat(c.Metrics.MAE, 'f', 4, 64),
			strconv.FormatFloat(c.Metrics.RMSE, 'f', 4, 64),
			strconv.FormatFloat(c.Metrics.R2, 'f', 4, 64),
			mark,
		); err != nil {
			return err
		}
	}
	for _, f := range res.Failures {
		if err := table.Append(f.Name, "-", "-", "-", "failed"); err != nil {
			return err
		}
	}
	return table.Render()
}

// reportInput takes importances from the trained random forest, or from
// the selected model when the forest is unavailable.
func reportInput(res *training.Result, target string) report.Input {
	in := report.Input{
		Dataset:  res.Cleaned,
		Target:   target,
		Features: res.Features,
	}
	for _, c := range res.Candidates {
		in.Models = append(in.Models, c.Name)
		in.R2 = append(in.R2, c.Metrics.R2)
	}
	for _, name := range []string{registry.RandomForest, res.Selected} {
		c, ok := res.Candidate(name)
		if !ok {
			continue
		}
		if fi, ok := c.Model.(model.FeatureImportancer); ok {
			if imp, err := fi.FeatureImportances(); err == nil {
				in.Importances = imp
				break
			}
		}
	}
	return in
}
