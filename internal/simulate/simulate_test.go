package simulate

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/statistics"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Size = 500
	cfg.Trials = 200
	cfg.Checkpoints = []int{100, 200, 300, 400}
	return cfg
}

func TestRun_LargeEffect(t *testing.T) {
	cfg := smallConfig()
	cfg.ControlRate = 0.10
	cfg.TreatmentRate = 0.30

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Trials)
	assert.Greater(t, res.Power, 0.95)
	assert.GreaterOrEqual(t, res.PeekingRejectRate, res.Power)
	assert.Len(t, res.PValues.Values, 200)
}

func TestRun_NoEffect(t *testing.T) {
	cfg := smallConfig()
	cfg.ControlRate = 0.10
	cfg.TreatmentRate = 0.10

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Less(t, res.Power, 0.15)
	assert.GreaterOrEqual(t, res.PeekingRejectRate, res.Power)
	assert.Greater(t, res.PValues.Median, 0.2)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Trials = 50

	a, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, a.PValues.Values, b.PValues.Values)
	assert.Equal(t, a.PeekingRejectRate, b.PeekingRejectRate)
}

func TestRun_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"rate above one", func(c *Config) { c.TreatmentRate = 1.5 }},
		{"zero size", func(c *Config) { c.Size = 0 }},
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"alpha one", func(c *Config) { c.Alpha = 1 }},
		{"negative checkpoint", func(c *Config) { c.Checkpoints = []int{-5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.modify(&cfg)
			_, err := Run(context.Background(), cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, smallConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckpoints(t *testing.T) {
	assert.Equal(t, []int{10}, checkpoints(nil, 10))
	assert.Equal(t, []int{2, 5, 10}, checkpoints([]int{5, 0, 2, 5, 10, 40}, 10))
}

func TestReplay_FromCounts(t *testing.T) {
	control, err := experiment.New(1000, 100)
	require.NoError(t, err)
	treatment, err := experiment.New(1000, 150)
	require.NoError(t, err)

	points, err := Replay(control, treatment, []int{500, 100}, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, 100, points[0].Visitors)
	assert.Equal(t, 100, points[0].Control.Total())
	assert.Equal(t, 500, points[1].Visitors)
	assert.Equal(t, 1000, points[2].Visitors)

	last := points[2]
	assert.Equal(t, 100, last.Control.Success())
	assert.Equal(t, 150, last.Treatment.Success())
	require.NoError(t, last.Err)

	want, err := statistics.ZBinomialTest(treatment, control)
	require.NoError(t, err)
	assert.InDelta(t, want.Statistic, last.Result.Statistic, 1e-12)
}

func TestReplay_KeepsRecordedOrder(t *testing.T) {
	control, err := experiment.FromData([]int{1, 0, 0, 0})
	require.NoError(t, err)
	treatment, err := experiment.FromData([]int{1, 1, 0, 1})
	require.NoError(t, err)

	points, err := Replay(control, treatment, []int{2}, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, []int{1, 0}, points[0].Control.Data())
	assert.Equal(t, []int{1, 1}, points[0].Treatment.Data())
}

func TestReplay_Empty(t *testing.T) {
	empty, err := experiment.New(0, 0)
	require.NoError(t, err)
	other, err := experiment.New(10, 1)
	require.NoError(t, err)

	_, err = Replay(empty, other, nil, nil)
	assert.ErrorIs(t, err, experiment.ErrDivision)

	_, err = Replay(nil, other, nil, nil)
	assert.ErrorIs(t, err, experiment.ErrNilVariation)
}
