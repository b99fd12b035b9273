package domain_test

import (
	"testing"

	"context-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSelectStrategy(t *testing.T) {
	t.Run("Short documents use single", func(t *testing.T) {
		assert.Equal(t, domain.StrategySingle, domain.SelectStrategy(0, false))
		assert.Equal(t, domain.StrategySingle, domain.SelectStrategy(600, true))
		assert.Equal(t, domain.StrategySingle, domain.SelectStrategy(899.9, false))
	})

	t.Run("Single boundary is exclusive", func(t *testing.T) {
		assert.Equal(t, domain.StrategySpeakerTurns, domain.SelectStrategy(900, false))
	})

	t.Run("Medium documents use speaker turns", func(t *testing.T) {
		assert.Equal(t, domain.StrategySpeakerTurns, domain.SelectStrategy(1200, false))
		assert.Equal(t, domain.StrategySpeakerTurns, domain.SelectStrategy(1799.9, true))
	})

	t.Run("Speaker turns boundary is exclusive", func(t *testing.T) {
		assert.Equal(t, domain.StrategyChapters, domain.SelectStrategy(1800, true))
	})

	t.Run("Long documents with chapters use chapters", func(t *testing.T) {
		assert.Equal(t, domain.StrategyChapters, domain.SelectStrategy(3600, true))
	})

	t.Run("Long documents without chapters fall back to speaker turns", func(t *testing.T) {
		assert.Equal(t, domain.StrategySpeakerTurns, domain.SelectStrategy(3600, false))
	})
}
