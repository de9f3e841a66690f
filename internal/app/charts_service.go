package app

import (
	"context"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/stats"
)

// Views used by read-side services. The entry services satisfy them.
type (
	weightView interface {
		View(ctx context.Context, userID int64) ([]domain.WeightEntry, error)
	}
	calorieView interface {
		View(ctx context.Context, userID int64) ([]domain.CalorieEntry, error)
	}
	wellnessView interface {
		View(ctx context.Context, userID int64) ([]domain.WellnessEntry, error)
	}
	moodView interface {
		View(ctx context.Context, userID int64) ([]domain.MoodEntry, error)
	}
)

// ChartsService encapsulates chart data retrieval use cases.
type ChartsService struct {
	weights  weightView
	calories calorieView
	wellness wellnessView
	clock    clock.Clock
}

// NewChartsService creates a ChartsService over the users' entry views.
func NewChartsService(w weightView, c calorieView, wl wellnessView, clk clock.Clock) *ChartsService {
	if clk == nil {
		clk = clock.New()
	}
	return &ChartsService{weights: w, calories: c, wellness: wl, clock: clk}
}

// DayPoint is a single data point returned by GetDaily.
type DayPoint struct {
	Day          string       `json:"day"`
	Weight       *WeightPoint `json:"weight"`
	Calories     int          `json:"calories"`
	WaterGlasses int          `json:"waterGlasses"`
	SleepHours   *float64     `json:"sleepHours"`
}

// WeightPoint is the optional weight value within a DayPoint.
type WeightPoint struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// GetDaily returns per-day chart data for the last days days, with weights
// converted to the requested unit. The last weight and wellness entry of a
// day wins; calories are summed.
func (s *ChartsService) GetDaily(ctx context.Context, userID int64, days int, unit string) ([]DayPoint, error) {
	if unit != "kg" && unit != "lb" {
		return nil, domain.Invalid("unit must be \"kg\" or \"lb\"")
	}
	if days > 366 {
		days = 366
	}
	if days < 1 {
		days = 1
	}

	weights, err := s.weights.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	calories, err := s.calories.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	wellness, err := s.wellness.View(ctx, userID)
	if err != nil {
		return nil, err
	}

	window := stats.LastDays(s.clock.Now(), days)
	byDay := make(map[string]*DayPoint, days)
	points := make([]DayPoint, 0, days)
	for _, d := range window.Days() {
		points = append(points, DayPoint{Day: d})
	}
	for i := range points {
		byDay[points[i].Day] = &points[i]
	}

	for _, e := range weights {
		if p, ok := byDay[e.Day]; ok {
			p.Weight = &WeightPoint{Value: domain.Round(domain.ConvertWeight(e.Value, e.Unit, unit), 1), Unit: unit}
		}
	}
	for _, e := range calories {
		if p, ok := byDay[e.Day]; ok {
			p.Calories += e.Calories
		}
	}
	for _, e := range wellness {
		if p, ok := byDay[e.Day]; ok {
			sleep := e.SleepHours
			p.SleepHours = &sleep
			p.WaterGlasses = e.WaterGlasses
		}
	}
	return points, nil
}
