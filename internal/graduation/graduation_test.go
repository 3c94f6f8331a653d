package graduation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

func ptr(x uint64) *fixedpoint.Amount {
	a := fixedpoint.FromUint64(x)
	return &a
}

func testState(t *testing.T, supply, raised uint64) curve.State {
	t.Helper()
	c := curve.Linear{Base: fixedpoint.FromUint64(1), Max: fixedpoint.FromUint64(1_000_000)}
	s, err := curve.NewState(c, fixedpoint.FromUint64(supply), fixedpoint.FromUint64(raised))
	require.NoError(t, err)
	return s
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluateIsOR(t *testing.T) {
	state := testState(t, 600_000, 80)
	res, err := Evaluate(state, Criteria{MinAssetRaised: ptr(75), MinSupplySold: ptr(700_000)}, now)
	require.NoError(t, err)

	assert.True(t, res.CanGraduate)
	assert.Equal(t, StatusGraduationEligible, res.Status)
	assert.True(t, res.Progress.AssetRaised.Satisfied)
	assert.Equal(t, uint32(100), res.Progress.AssetRaised.Percent())
	assert.False(t, res.Progress.SupplySold.Satisfied)
	// 600000 / 700000 = 85.71%
	assert.Equal(t, uint32(8571), res.Progress.SupplySold.ProgressBps)
	assert.Equal(t, uint32(85), res.Progress.SupplySold.Percent())
}

func TestEvaluateNothingMet(t *testing.T) {
	state := testState(t, 600_000, 50)
	res, err := Evaluate(state, Criteria{MinAssetRaised: ptr(75), MinSupplySold: ptr(700_000)}, now)
	require.NoError(t, err)
	assert.False(t, res.CanGraduate)
	assert.Equal(t, StatusActive, res.Status)
	assert.Equal(t, uint32(6666), res.Progress.AssetRaised.ProgressBps)
}

func TestEvaluateWithoutCriteria(t *testing.T) {
	state := testState(t, 1_000_000, 1_000_000_000)
	res, err := Evaluate(state, Criteria{}, now)
	require.NoError(t, err)

	assert.False(t, res.CanGraduate)
	assert.Equal(t, StatusActive, res.Status)
	for _, c := range []Condition{res.Progress.AssetRaised, res.Progress.SupplySold, res.Progress.Time} {
		assert.False(t, c.Configured)
		assert.False(t, c.Satisfied)
		assert.Equal(t, uint32(Full), c.ProgressBps)
	}
	assert.False(t, Criteria{}.Configured())
}

func TestEvaluateTimeLimit(t *testing.T) {
	start := now.Add(-30 * 24 * time.Hour)
	limit := now.Add(10 * 24 * time.Hour)
	state := testState(t, 0, 0)

	res, err := Evaluate(state, Criteria{TimeLimit: &limit, StartTime: start}, now)
	require.NoError(t, err)
	assert.False(t, res.CanGraduate)
	assert.True(t, res.Progress.Time.Configured)
	assert.Equal(t, uint32(7500), res.Progress.Time.ProgressBps)

	res, err = Evaluate(state, Criteria{TimeLimit: &limit, StartTime: start}, limit)
	require.NoError(t, err)
	assert.True(t, res.CanGraduate)
	assert.Equal(t, uint32(Full), res.Progress.Time.ProgressBps)

	// without a start the window has no length
	res, err = Evaluate(state, Criteria{TimeLimit: &limit}, now)
	require.NoError(t, err)
	assert.False(t, res.CanGraduate)
	assert.Zero(t, res.Progress.Time.ProgressBps)

	// before the window opens
	res, err = Evaluate(state, Criteria{TimeLimit: &limit, StartTime: start}, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Progress.Time.ProgressBps)
}

func TestEvaluateZeroThresholdIsMet(t *testing.T) {
	res, err := Evaluate(testState(t, 0, 0), Criteria{MinSupplySold: ptr(0)}, now)
	require.NoError(t, err)
	assert.True(t, res.CanGraduate)
}

func TestEvaluateIsPure(t *testing.T) {
	state := testState(t, 600_000, 80)
	criteria := Criteria{MinAssetRaised: ptr(75)}
	first, err := Evaluate(state, criteria, now)
	require.NoError(t, err)
	second, err := Evaluate(state, criteria, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "80", state.AssetReserves.String())
}
