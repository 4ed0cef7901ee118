package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTrainTestSplit_Deterministic(t *testing.T) {
	a, err := TrainTestSplit(100, DefaultTestSize, DefaultSeed)
	require.NoError(t, err)
	b, err := TrainTestSplit(100, DefaultTestSize, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := TrainTestSplit(100, DefaultTestSize, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.Test, c.Test)
}

func TestTrainTestSplit_Partition(t *testing.T) {
	for _, n := range []int{2, 5, 11, 100, 227} {
		s, err := TrainTestSplit(n, DefaultTestSize, DefaultSeed)
		require.NoError(t, err)

		assert.Len(t, s.Test, (n+4)/5, "n=%d", n)
		all := append(append([]int(nil), s.Train...), s.Test...)
		sort.Ints(all)
		for i, v := range all {
			require.Equal(t, i, v, "n=%d rows must be disjoint and complete", n)
		}
	}
}

func TestTrainTestSplit_Invalid(t *testing.T) {
	_, err := TrainTestSplit(1, DefaultTestSize, DefaultSeed)
	assert.Error(t, err)
	_, err = TrainTestSplit(10, 0, DefaultSeed)
	assert.Error(t, err)
	_, err = TrainTestSplit(10, 1, DefaultSeed)
	assert.Error(t, err)
}

func TestSplit_Apply(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{0, 0, 1, 10, 2, 20, 3, 30, 4, 40})
	y := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	s := Split{Train: []int{4, 1, 3}, Test: []int{0, 2}}

	XTrain, XTest, yTrain, yTest := s.Apply(X, y)
	assert.Equal(t, []float64{4, 40, 1, 10, 3, 30}, XTrain.RawMatrix().Data)
	assert.Equal(t, []float64{0, 0, 2, 20}, XTest.RawMatrix().Data)
	assert.Equal(t, []float64{4, 1, 3}, yTrain.RawMatrix().Data)
	assert.Equal(t, []float64{0, 2}, yTest.RawMatrix().Data)
}
