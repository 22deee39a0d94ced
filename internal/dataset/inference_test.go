package dataset

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/predictor/internal/indicator"
)

func TestInferenceExamples(t *testing.T) {
	ds := mustPrepare(t, linearCandles(100), 0.9)
	l := DefaultLayout()
	reg := ds.Registry()

	examples, err := ds.InferenceExamples(l)
	require.NoError(t, err)
	require.Len(t, examples, ds.TestLen())

	for i, ex := range examples {
		ti := ds.TrainLen() + i
		assert.Equal(t, ti, ex.Index)
		assert.Equal(t, min(ti+l.Horizon, ds.Len()-1), ex.PredictIndex)
		require.Len(t, ex.Input, l.InputColumns())
		require.Len(t, ex.Label, l.OutputColumns())

		assert.InDelta(t, reg.Close.Normalize(ds.Close(ti-1)), ex.Input[l.AnchorColumn()], 1e-12)
		assert.InDelta(t, reg.Close.Normalize(ds.Close(ti-l.RecentCloses)), ex.Input[l.CloseColumn(0)], 1e-12)
		assert.InDelta(t, reg.Close.Normalize(ds.Close(ex.PredictIndex)), ex.Label[indicator.KindCount], 1e-12)
	}
}

func TestInferenceExamples_SplitExtremes(t *testing.T) {
	l := DefaultLayout()

	all := mustPrepare(t, linearCandles(100), 1.0)
	examples, err := all.InferenceExamples(l)
	require.NoError(t, err)
	assert.Empty(t, examples)

	none := mustPrepare(t, linearCandles(100), 0.0)
	examples, err = none.InferenceExamples(l)
	require.NoError(t, err)
	require.Len(t, examples, none.Len()-l.History())
	assert.Equal(t, l.History(), examples[0].Index)

	_, err = none.InferenceExamples(Layout{})
	assert.Error(t, err)
}

func TestDecodePrediction(t *testing.T) {
	ds := mustPrepare(t, linearCandles(100), 0.9)
	reg := ds.Registry()

	examples, err := ds.InferenceExamples(DefaultLayout())
	require.NoError(t, err)
	ex := examples[0]

	p, err := DecodePrediction(ex.Label, reg)
	require.NoError(t, err)
	assert.InDelta(t, ds.Close(ex.PredictIndex), p.Close, 1e-9)
	for _, kind := range indicator.Kinds {
		assert.InDelta(t, ds.Value(kind, ex.PredictIndex), p.Indicators[kind], 1e-9)
	}

	_, err = DecodePrediction(make([]float64, 3), reg)
	var vErr *indicator.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestEvaluate(t *testing.T) {
	ds := mustPrepare(t, linearCandles(100), 0.9)
	l := DefaultLayout()

	examples, err := ds.InferenceExamples(l)
	require.NoError(t, err)

	ev, err := Evaluate(LastValueModel{Layout: l}, examples, ds.Registry())
	require.NoError(t, err)
	assert.Equal(t, len(examples), ev.Count)
	require.Len(t, ev.Predicted, ev.Count)

	var sum float64
	for i, ex := range examples {
		assert.InDelta(t, ds.Close(ex.Index-1), ev.Predicted[i], 1e-9)
		assert.InDelta(t, ds.Close(ex.PredictIndex), ev.Actual[i], 1e-9)
		sum += math.Abs(ds.Close(ex.PredictIndex) - ds.Close(ex.Index-1))
	}
	assert.InDelta(t, sum/float64(ev.Count), ev.CloseMAE, 1e-9)
	assert.Greater(t, ev.CloseMAE, 0.0)

	empty, err := Evaluate(LastValueModel{Layout: l}, nil, ds.Registry())
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.CloseMAE)

	boom := errors.New("모델 오류")
	_, err = Evaluate(LastValueModel{Layout: l, Err: boom}, examples, ds.Registry())
	assert.ErrorIs(t, err, boom)
}

func TestLastValueModel(t *testing.T) {
	ds := mustPrepare(t, linearCandles(100), 0.9)
	l := DefaultLayout()

	examples, err := ds.InferenceExamples(l)
	require.NoError(t, err)
	ex := examples[0]

	out, err := LastValueModel{Layout: l}.Predict(ex.Input)
	require.NoError(t, err)
	require.Len(t, out, l.OutputColumns())
	for _, kind := range indicator.Kinds {
		assert.Equal(t, ex.Input[l.IndicatorColumn(l.RecentIndicators-1, kind)], out[kind])
	}
	assert.Equal(t, ex.Input[l.AnchorColumn()], out[indicator.KindCount])

	_, err = LastValueModel{Layout: l}.Predict(ex.Input[:3])
	var vErr *indicator.ValidationError
	assert.True(t, errors.As(err, &vErr))
}
