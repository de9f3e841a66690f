// Package stats holds the derived statistics shown on dashboards: averages,
// streaks, goal predictions and BMI. Every function is pure; callers pass the
// reference "today" explicitly.
package stats

import (
	"math"
	"sort"
	"time"

	"fitflow/internal/domain"
)

// Point is a dated measurement.
type Point struct {
	Day   string
	Value float64
}

const day = 24 * time.Hour

// WeeklyAverage returns the average weekly loss between the earliest and the
// latest point, rounded to two decimals. A gain is negative. Fewer than two
// points yield 0.
func WeeklyAverage(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	sorted := sortedPoints(points)
	first, last := sorted[0], sorted[len(sorted)-1]
	days := math.Max(1, daysBetween(first.Day, last.Day))
	return domain.Round((first.Value-last.Value)/days*7, 2)
}

// DailyAverage returns the rounded mean of values, or 0 for none.
func DailyAverage(values []int) int {
	if len(values) == 0 {
		return 0
	}
	total := 0
	for _, v := range values {
		total += v
	}
	return int(math.Round(float64(total) / float64(len(values))))
}

// Streak counts consecutive days with at least one entry, walking back from
// the most recent day. The streak is alive only if the most recent day is
// today or yesterday.
func Streak(days []string, today time.Time) int {
	if len(days) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		seen[d] = struct{}{}
	}
	cursor := dayStart(today)
	if _, ok := seen[domain.DayString(cursor)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := seen[domain.DayString(cursor)]; !ok {
			return 0
		}
	}
	streak := 0
	for {
		if _, ok := seen[domain.DayString(cursor)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// PredictGoalDate extrapolates the current weekly rate of loss to target.
// It reports false when the user is not losing weight or is already at or
// below target.
func PredictGoalDate(points []Point, target float64, today time.Time) (time.Time, bool) {
	if len(points) < 2 || target <= 0 {
		return time.Time{}, false
	}
	weekly := WeeklyAverage(points)
	if weekly <= 0 {
		return time.Time{}, false
	}
	current := sortedPoints(points)[len(points)-1].Value
	toLose := current - target
	if toLose <= 0 {
		return time.Time{}, false
	}
	weeks := math.Ceil(toLose / weekly)
	return dayStart(today).AddDate(0, 0, int(weeks)*7), true
}

// BMI computes body mass index from pounds and inches, rounded to one decimal.
// Missing input yields 0.
func BMI(lbs, inches float64) float64 {
	if lbs <= 0 || inches <= 0 {
		return 0
	}
	return domain.Round(lbs/(inches*inches)*703, 1)
}

// BMI categories.
const (
	Underweight = "Underweight"
	Normal      = "Normal"
	Overweight  = "Overweight"
	Obese       = "Obese"
)

// BMICategory classifies a BMI value. Lower bounds are inclusive.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return Overweight
	default:
		return Obese
	}
}

// Progress is the share of the start-to-target distance already covered, as a
// percentage clamped to [0, 100].
func Progress(start, current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	span := start - target
	if span == 0 {
		if current <= target {
			return 100
		}
		return 0
	}
	return math.Min(100, math.Max(0, (start-current)/span*100))
}

// Mean returns the arithmetic mean of values, or 0 for none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func sortedPoints(points []Point) []Point {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })
	return sorted
}

func daysBetween(from, to string) float64 {
	a, errA := domain.ParseDay(from)
	b, errB := domain.ParseDay(to)
	if errA != nil || errB != nil {
		return 0
	}
	// Rounded to absorb DST shifts.
	return math.Round(b.Sub(a).Hours() / 24)
}

func dayStart(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
