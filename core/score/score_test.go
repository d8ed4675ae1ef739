package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name         string
		score, total int
		want         float64
	}{
		{name: "zero total", score: 3, total: 0, want: 0},
		{name: "full marks", score: 10, total: 10, want: 100},
		{name: "two thirds", score: 2, total: 3, want: 66.67},
		{name: "one third", score: 1, total: 3, want: 33.33},
		{name: "zero score", score: 0, total: 7, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.score, tt.total))
		})
	}
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		pct  float64
		want Level
	}{
		{100, LevelExcellent},
		{90, LevelExcellent},
		{89.99, LevelVeryGood},
		{80, LevelVeryGood},
		{70, LevelGood},
		{60, LevelFair},
		{59.99, LevelNeedsImprovement},
		{0, LevelNeedsImprovement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelOf(tt.pct), "LevelOf(%v)", tt.pct)
	}
}

func samplesOf(pcts ...int) []Sample {
	now := time.Now()
	samples := make([]Sample, 0, len(pcts))
	for i, p := range pcts {
		samples = append(samples, Sample{Score: p, TotalMarks: 100, At: now.Add(-time.Duration(i) * time.Hour)})
	}
	return samples
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    Trend
	}{
		{name: "none", samples: nil, want: TrendInsufficientData},
		{name: "two", samples: samplesOf(90, 80), want: TrendInsufficientData},
		{name: "exactly three", samples: samplesOf(90, 80, 70), want: TrendInsufficientData},
		{name: "improving", samples: samplesOf(90, 90, 90, 60, 60, 60), want: TrendImproving},
		{name: "declining", samples: samplesOf(50, 50, 50, 80, 80, 80), want: TrendDeclining},
		{name: "stable", samples: samplesOf(70, 72, 74, 70, 71, 72), want: TrendStable},
		{name: "diff of exactly 5 is stable", samples: samplesOf(75, 75, 75, 70, 70, 70), want: TrendStable},
		{name: "one older", samples: samplesOf(90, 90, 90, 60), want: TrendImproving},
		{name: "only 6 most recent count", samples: samplesOf(90, 90, 90, 90, 90, 90, 0, 0, 0), want: TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendOf(tt.samples))
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "2025-02", MonthKey(time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-W07", WeekKey(time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)))
	// ISO week-years differ from calendar years around new year
	assert.Equal(t, "2020-W53", WeekKey(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-W01", WeekKey(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))
}

func TestMonthly(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Score: 1, TotalMarks: 2, At: feb},
		{Score: 2, TotalMarks: 2, At: jan},
		{Score: 0, TotalMarks: 2, At: jan.Add(24 * time.Hour)},
	}
	assert.Equal(t, []Bucket{
		{Period: "2025-01", AveragePercentage: 50, QuizzesTaken: 2, TotalMarks: 2, PossibleMarks: 4},
		{Period: "2025-02", AveragePercentage: 50, QuizzesTaken: 1, TotalMarks: 1, PossibleMarks: 2},
	}, Monthly(samples))
	assert.Empty(t, Monthly(nil))
}

func TestWeekly(t *testing.T) {
	start := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC) // monday of 2025-W02
	samples := make([]Sample, 0, 10)
	for w := 0; w < 10; w++ {
		samples = append(samples, Sample{Score: w, TotalMarks: 10, At: start.AddDate(0, 0, 7*w)})
	}

	got := Weekly(samples)
	if assert.Len(t, got, 8) {
		assert.Equal(t, "2025-W04", got[0].Period)
		assert.Equal(t, "2025-W11", got[7].Period)
		assert.Equal(t, 90.0, got[7].AveragePercentage)
	}
}
