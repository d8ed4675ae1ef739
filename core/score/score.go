// Package score holds the pure scoring arithmetic shared by attempts and reports.
package score

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type Level string

const (
	LevelExcellent        Level = "Excellent"
	LevelVeryGood         Level = "Very Good"
	LevelGood             Level = "Good"
	LevelFair             Level = "Fair"
	LevelNeedsImprovement Level = "Needs Improvement"
	LevelNoData           Level = "No Data"
)

type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
	TrendNoData           Trend = "no_data"
)

const (
	trendWindow    = 3
	trendThreshold = 5.0
	weeklyBuckets  = 8
)

// Round2 rounds f to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Percentage returns score/total as a percentage rounded to 2 decimals; 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(score) / float64(total) * 100)
}

// LevelOf maps a percentage to its performance level.
func LevelOf(pct float64) Level {
	switch {
	case pct >= 90:
		return LevelExcellent
	case pct >= 80:
		return LevelVeryGood
	case pct >= 70:
		return LevelGood
	case pct >= 60:
		return LevelFair
	default:
		return LevelNeedsImprovement
	}
}

// Sample is one completed attempt as seen by the statistics.
type Sample struct {
	Score      int
	TotalMarks int
	At         time.Time
}

func (s Sample) Percentage() float64 {
	return Percentage(s.Score, s.TotalMarks)
}

func meanPercentage(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Percentage()
	}
	return sum / float64(len(samples))
}

// MeanPercentage returns the mean of the samples' percentages, rounded to 2 decimals.
func MeanPercentage(samples []Sample) float64 {
	return Round2(meanPercentage(samples))
}

// TrendOf compares the mean percentage of the 3 most recent samples with the (up to) 3 before them.
// samples must be ordered most recent first.
func TrendOf(samples []Sample) Trend {
	if len(samples) < trendWindow {
		return TrendInsufficientData
	}
	recent := samples[:trendWindow]
	older := samples[trendWindow:]
	if len(older) > trendWindow {
		older = older[:trendWindow]
	}
	if len(older) == 0 {
		return TrendInsufficientData
	}

	diff := meanPercentage(recent) - meanPercentage(older)
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Bucket aggregates the samples of one period.
type Bucket struct {
	Period            string  `json:"period"`
	AveragePercentage float64 `json:"average_percentage"`
	QuizzesTaken      int     `json:"quizzes_taken"`
	TotalMarks        int     `json:"total_marks"`
	PossibleMarks     int     `json:"possible_marks"`
}

// MonthKey formats t as "2006-01" in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WeekKey formats t as its ISO week, e.g. "2025-W07", in UTC.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Monthly groups samples by calendar month, oldest period first.
func Monthly(samples []Sample) []Bucket {
	return buckets(samples, MonthKey)
}

// Weekly groups samples by ISO week and keeps the 8 most recent periods, oldest first.
func Weekly(samples []Sample) []Bucket {
	bs := buckets(samples, WeekKey)
	if len(bs) > weeklyBuckets {
		bs = bs[len(bs)-weeklyBuckets:]
	}
	return bs
}

func buckets(samples []Sample, key func(time.Time) string) []Bucket {
	grouped := make(map[string][]Sample)
	for _, s := range samples {
		k := key(s.At)
		grouped[k] = append(grouped[k], s)
	}

	bs := make([]Bucket, 0, len(grouped))
	for period, group := range grouped {
		b := Bucket{
			Period:            period,
			AveragePercentage: MeanPercentage(group),
			QuizzesTaken:      len(group),
		}
		for _, s := range group {
			b.TotalMarks += s.Score
			b.PossibleMarks += s.TotalMarks
		}
		bs = append(bs, b)
	}
	// both key formats sort chronologically as strings
	sort.Slice(bs, func(i, j int) bool { return bs[i].Period < bs[j].Period })
	return bs
}
