// Standard attribute keys. Keys are dotted so logs can be filtered by
// category ("model.*", "data.*", "metrics.*").

package log

// Model and operation context.
const (
	// ModelNameKey is the candidate name as it appears in the registry,
	// e.g. "Random Forest".
	ModelNameKey = "model.name"

	// OperationKey is one of the Operation* values below.
	OperationKey = "ml.operation"

	// ComponentKey names the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is one of the Phase* values below.
	PhaseKey = "ml.phase"

	// StageKey is the training state machine stage.
	StageKey = "training.stage"

	// RunIDKey identifies a training run; it is also written to the manifest.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetKey   = "data.target"
	PathKey     = "data.path"

	// FeatureNamesKey holds the ordered feature ranking.
	FeatureNamesKey = "data.feature_names"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"
	MAEKey        = "metrics.mae"
	RMSEKey       = "metrics.rmse"
	R2ScoreKey    = "metrics.r2_score"
	IterationKey  = "training.iteration"
)

// Artifact store.
const (
	ArtifactKey    = "artifact.key"
	ArtifactDirKey = "artifact.dir"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	ErrorCodeKey  = "error.code"
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSave      = "save"
	OperationLoad      = "load"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorCandidateFailed   = "CANDIDATE_FAILED"
)
