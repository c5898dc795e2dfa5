package experiment

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (*Collection, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	c, err := NewCollection(zap.New(core))
	require.NoError(t, err)
	return c, logs
}

func mustNew(t *testing.T, total, success int) *Variation {
	t.Helper()
	v, err := New(total, success)
	require.NoError(t, err)
	return v
}

func TestNewCollection(t *testing.T) {
	ctrl := mustNew(t, 100, 10)
	t1 := mustNew(t, 100, 12)
	t2 := mustNew(t, 100, 15)

	c, err := NewCollection(nil, ctrl, t1, t2)
	require.NoError(t, err)
	assert.Same(t, ctrl, c.Control())
	require.Equal(t, 2, c.Len())
	assert.Same(t, t1, c.Treatments()[0])
	assert.Same(t, t2, c.Treatments()[1])
}

func TestNewCollection_Nil(t *testing.T) {
	_, err := NewCollection(nil, nil)
	assert.ErrorIs(t, err, ErrNilVariation)

	_, err = NewCollection(nil, mustNew(t, 1, 1), nil)
	assert.ErrorIs(t, err, ErrNilVariation)
}

func TestAddControl_Replace(t *testing.T) {
	c, logs := newObserved(t)
	first := mustNew(t, 10, 1)
	second := mustNew(t, 20, 2)

	require.NoError(t, c.AddControl(first))
	assert.Equal(t, 0, logs.Len())

	require.NoError(t, c.AddControl(second))
	assert.Equal(t, 1, logs.Len())
	assert.Same(t, second, c.Control())
}

func TestAddTreatments(t *testing.T) {
	c, logs := newObserved(t)

	require.NoError(t, c.AddTreatments())
	assert.Equal(t, 1, logs.FilterMessage("nothing to add").Len())
	assert.Equal(t, 0, c.Len())

	a, b := mustNew(t, 10, 1), mustNew(t, 10, 2)
	require.NoError(t, c.AddTreatments(a, b))
	require.NoError(t, c.AddTreatments(mustNew(t, 10, 3)))
	assert.Equal(t, 3, c.Len())
	assert.Same(t, a, c.Treatments()[0])

	err := c.AddTreatments(mustNew(t, 1, 0), nil)
	assert.ErrorIs(t, err, ErrNilVariation)
	assert.Equal(t, 3, c.Len(), "nothing is appended on error")
}

func TestDeleteTreatment(t *testing.T) {
	c, logs := newObserved(t)
	a, b, d := mustNew(t, 10, 1), mustNew(t, 10, 2), mustNew(t, 10, 3)
	require.NoError(t, c.AddTreatments(a, b, d))

	c.DeleteTreatment(2)
	require.Equal(t, 2, c.Len())
	assert.Same(t, a, c.Treatments()[0])
	assert.Same(t, d, c.Treatments()[1])

	c.DeleteTreatment(5)
	c.DeleteTreatment(0)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, logs.Len())
}

func TestDeleteControl(t *testing.T) {
	c, err := NewCollection(nil, mustNew(t, 10, 1))
	require.NoError(t, err)
	c.DeleteControl()
	assert.Nil(t, c.Control())
}

func TestDescribe(t *testing.T) {
	c, err := NewCollection(nil, mustNew(t, 100, 10), mustNew(t, 50, 20), mustNew(t, 0, 0))
	require.NoError(t, err)

	s := c.Describe()
	require.NotNil(t, s)
	require.Len(t, s.Rows, 3)

	assert.Equal(t, SummaryRow{Name: "Control", Success: 10, Total: 100, Conversion: 0.1}, s.Rows[0])
	assert.Equal(t, "Treatment_1", s.Rows[1].Name)
	assert.InDelta(t, 0.4, s.Rows[1].Conversion, 1e-12)
	assert.Equal(t, "Treatment_2", s.Rows[2].Name)
	assert.True(t, math.IsNaN(s.Rows[2].Conversion))
}

func TestDescribe_TreatmentsOnly(t *testing.T) {
	c, err := NewCollection(nil)
	require.NoError(t, err)
	require.NoError(t, c.AddTreatments(mustNew(t, 4, 1)))

	s := c.Describe()
	require.NotNil(t, s)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "Treatment_1", s.Rows[0].Name)
}

func TestDescribe_Empty(t *testing.T) {
	c, logs := newObserved(t)
	assert.Nil(t, c.Describe())
	assert.Equal(t, 1, logs.FilterMessage("the collection is empty").Len())
}

func TestCollection_ZeroValue(t *testing.T) {
	var c Collection
	assert.Nil(t, c.Describe())
	c.DeleteTreatment(1)
	require.NoError(t, c.AddTreatments())

	payload := `{"0": {"total": 10, "success": 1, "data": null, "group": null}}`
	var decoded Collection
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	require.NotNil(t, decoded.Control())

	replacement := mustNew(t, 20, 2)
	require.NoError(t, decoded.AddControl(replacement))
	assert.Same(t, replacement, decoded.Control())

	summary := decoded.Describe()
	require.NotNil(t, summary)
	assert.Equal(t, "Control", summary.Rows[0].Name)
}
