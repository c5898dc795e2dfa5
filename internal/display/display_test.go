package display

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/simulate"
	"github.com/moguls753/abtest/internal/statistics"
)

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, "eng", &experiment.Summary{Rows: []experiment.SummaryRow{
		{Name: "Control", Success: 100, Total: 1000, Conversion: 0.1},
		{Name: "Treatment_1", Success: 0, Total: 0, Conversion: math.NaN()},
	}})

	out := buf.String()
	assert.Contains(t, out, "Conversion")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "Treatment_1")
	assert.Contains(t, out, "n/a")
}

func TestSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, "rus", nil)
	assert.Equal(t, "В тесте пока нет вариантов.\n", buf.String())

	buf.Reset()
	Summary(&buf, "deu", nil)
	assert.Equal(t, "The test has no variations yet.\n", buf.String(), "unknown languages fall back to english")
}

func TestComparisons(t *testing.T) {
	control, err := experiment.New(1000, 100)
	require.NoError(t, err)
	treatment, err := experiment.New(1000, 150)
	require.NoError(t, err)
	c, err := experiment.NewCollection(nil, control, treatment)
	require.NoError(t, err)

	a := statistics.DefaultAnalysis()
	comps, err := statistics.CompareCollection(c, a)
	require.NoError(t, err)

	var buf bytes.Buffer
	Comparisons(&buf, "eng", comps, a)
	out := buf.String()
	assert.Contains(t, out, "alpha = 0.05, epsilon = 0.9)")
	assert.Contains(t, out, "│ Treatment_1")
	assert.Contains(t, out, "Treatment_1: treatment is better at level 0.05; treatment is better with probability")

	buf.Reset()
	Comparisons(&buf, "eng", nil, a)
	assert.Equal(t, "The test has no treatments to compare.\n", buf.String())
}

func TestVerdict(t *testing.T) {
	a := statistics.DefaultAnalysis()
	c := statistics.Comparison{ProbBetter: 0.5, ProbBetterByDelta: 0.1}

	assert.Equal(t,
		"no significant difference at level 0.05; not enough evidence, probability treatment is better 50.00%",
		Verdict("eng", c, a))

	a.Delta = 0.01
	assert.Contains(t, Verdict("eng", c, a), "10.00%", "the margin probability is reported when delta is set")

	c.Significant, c.BayesConfident = true, true
	assert.Equal(t, "тестовый вариант лучше на уровне 0.05; тестовый вариант лучше с вероятностью 10.00%", Verdict("rus", c, a))
}

func TestSimulation(t *testing.T) {
	var buf bytes.Buffer
	cfg := simulate.DefaultConfig()
	Simulation(&buf, cfg, &simulate.Result{
		Trials:            1000,
		Power:             0.8,
		PeekingRejectRate: 0.9,
		PValues:           statistics.Calculate([]float64{0.01, 0.02, 0.5}),
	})

	out := buf.String()
	assert.Contains(t, out, "10.00% vs 12.00%, 5000 visitors per arm, 1000 trials")
	assert.Contains(t, out, "80.00%")
	assert.Contains(t, out, "90.00%")
}

func TestReplay(t *testing.T) {
	control, err := experiment.New(10, 1)
	require.NoError(t, err)
	treatment, err := experiment.New(10, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	Replay(&buf, []simulate.Point{
		{Visitors: 1, Control: control, Treatment: treatment, Err: errors.New("undefined")},
		{Visitors: 10, Control: control, Treatment: treatment, Result: statistics.TestResult{Statistic: 2.1, PValue: 0.017}},
	}, 0.05)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[3], "undefined")
	assert.Contains(t, lines[4], "* (p<0.05)")
}
