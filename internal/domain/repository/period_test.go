package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, Period2Y, NormalizePeriod(""))
	assert.Equal(t, Period2Y, NormalizePeriod("3w"))
	assert.Equal(t, Period5Y, NormalizePeriod("5y"))
	assert.Equal(t, PeriodMax, NormalizePeriod("max"))
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), PeriodStart(now, Period6M))
	assert.Equal(t, time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC), PeriodStart(now, Period2Y))
	assert.True(t, PeriodStart(now, PeriodMax).IsZero())
	assert.Equal(t, PeriodStart(now, Period2Y), PeriodStart(now, Period("bogus")))
}
