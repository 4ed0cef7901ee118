package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/imrcast/registry"
)

func candidates() []CandidateResult {
	return []CandidateResult{
		{Name: registry.RandomForest, Metrics: EvaluationResult{MAE: 2.0, RMSE: 3.0, R2: 0.80}},
		{Name: registry.SVR, Metrics: EvaluationResult{MAE: 1.5, RMSE: 3.5, R2: 0.85}},
		{Name: registry.KNN, Metrics: EvaluationResult{MAE: 2.5, RMSE: 2.5, R2: 0.85}},
	}
}

func TestPolicies(t *testing.T) {
	tests := []struct {
		policy SelectionPolicy
		want   string
	}{
		{DefaultPolicy(), registry.RandomForest},
		{FixedName(registry.KNN), registry.KNN},
		{BestBy(MetricR2), registry.SVR},
		{BestBy(MetricMAE), registry.SVR},
		{BestBy(MetricRMSE), registry.KNN},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			got, err := tt.policy.Select(candidates())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FixedName("Neural Network").Select(candidates())
	assert.Error(t, err)
	_, err = BestBy(MetricR2).Select(nil)
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]string{
		"":                  "fixed:Random Forest",
		"fixed:Extra Trees": "fixed:Extra Trees",
		"best:r2":           "best:r2",
		"BEST:MAE":          "best:mae",
		"best:rmse":         "best:rmse",
	} {
		p, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, p.String())
	}

	for _, bad := range []string{"best", "best:", "best:mape", "worst:r2", "Random Forest"} {
		_, err := ParsePolicy(bad)
		assert.Error(t, err, bad)
	}
}
