package ppcalc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-server/pp-server/internal/domain"
)

func TestCalculateIsDeterministicForSameInput(t *testing.T) {
	c := New()
	acc := 98.0
	params := domain.CalcParams{Acc: &acc}

	r1, err := c.Calculate(context.Background(), "some .osu content", params)
	require.NoError(t, err)
	r2, err := c.Calculate(context.Background(), "some .osu content", params)
	require.NoError(t, err)

	assert.Equal(t, r1.PP, r2.PP)
	assert.Equal(t, r1.Stars, r2.Stars)
}

func TestCalculateHigherAccuracyScoresHigherPP(t *testing.T) {
	c := New()
	low, high := 90.0, 100.0

	lowResult, err := c.Calculate(context.Background(), "beatmap-a", domain.CalcParams{Acc: &low})
	require.NoError(t, err)
	highResult, err := c.Calculate(context.Background(), "beatmap-a", domain.CalcParams{Acc: &high})
	require.NoError(t, err)

	assert.Greater(t, highResult.PP, lowResult.PP)
}

func TestCalculateMissesLowerPP(t *testing.T) {
	c := New()
	noMiss := 0
	someMiss := 5

	clean, err := c.Calculate(context.Background(), "beatmap-b", domain.CalcParams{Miss: &noMiss})
	require.NoError(t, err)
	missed, err := c.Calculate(context.Background(), "beatmap-b", domain.CalcParams{Miss: &someMiss})
	require.NoError(t, err)

	assert.Greater(t, clean.PP, missed.PP)
}

func TestCalculateRawBreakdownSumsTowardTotal(t *testing.T) {
	c := New()
	result, err := c.Calculate(context.Background(), "beatmap-c", domain.CalcParams{})
	require.NoError(t, err)

	sum := result.Raw.Aim + result.Raw.Spd + result.Raw.Str + result.Raw.Acc
	assert.InDelta(t, result.Raw.Total, sum, 0.0001)
}

func TestCalculateDefaultsToFullAccuracyWhenUnset(t *testing.T) {
	c := New()
	full := 100.0
	withDefault, err := c.Calculate(context.Background(), "beatmap-d", domain.CalcParams{})
	require.NoError(t, err)
	withExplicit, err := c.Calculate(context.Background(), "beatmap-d", domain.CalcParams{Acc: &full})
	require.NoError(t, err)

	assert.Equal(t, withExplicit.PP, withDefault.PP)
}
