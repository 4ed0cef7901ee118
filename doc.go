// Package imrcast estimates infant mortality rate from correlated country
// indicators.
//
// A training run ranks the numeric columns by absolute Pearson correlation
// with the target, keeps the top K, splits the cleaned rows 80/20 with a
// fixed seed, standardizes on the training partition and fits eleven
// regressors. Every candidate is scored on the holdout (MAE, RMSE, R2); a
// selection policy picks the one persisted together with the scaler, the
// ordered feature names and the full metrics table. Prediction loads those
// artifacts and scores a single observation.
//
// # Packages
//
//   - dataset: CSV / XLSX loading and null-target cleaning
//   - feature: correlation ranking
//   - preprocessing, model_selection, metrics: scaler, split and scores
//   - sklearn/...: the regressors (linear models, trees, ensembles, SVR, KNN)
//   - registry: the ordered candidate catalog
//   - training: the evaluator and selection policies
//   - artifact: FileStore and MemoryStore with a hashed manifest
//   - predict: observation parsing and scoring
//   - report: PNG figures
//   - cmd/imrcast: the CLI
//
// # Quick Start
//
//	imrcast train world-data-2023.csv
//	imrcast predict '{"Birth Rate": 18.5, "Fertility Rate": 2.1, ...}'
//
// In-process, with an injected store:
//
//	store := artifact.NewMemoryStore()
//	ranked, err := feature.NewSelector().Rank(ds, target, feature.DefaultTopK)
//	if err != nil {
//	    return err
//	}
//	res, err := training.NewEvaluator(store).Run(ctx, ds, target, feature.Names(ranked))
//	if err != nil {
//	    return err
//	}
//	estimate, err := predict.NewPredictor(store).Predict(obs)
//
// # Error Handling
//
// Errors carry cockroachdb stack traces. Pipeline failures are typed:
// InputError, ArtifactError (MissingArtifact, ShapeMismatch, UnknownFeature,
// CorruptArtifact) and TrainingFailure; sentinels match through errors.Is.
//
//	if errors.Is(err, errors.ErrMissingArtifact) {
//	    // no completed training run yet
//	}
package imrcast
