package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/stats"
)

type profileGetter interface {
	Get(ctx context.Context, userID int64) (*domain.Profile, error)
}

// Dashboard is the summary shown on the home view. Weights are in pounds.
type Dashboard struct {
	Today             string        `json:"today"`
	CurrentWeight     float64       `json:"currentWeight"`
	StartWeight       float64       `json:"startWeight"`
	TargetWeight      float64       `json:"targetWeight"`
	TotalLost         float64       `json:"totalLost"`
	Remaining         float64       `json:"remaining"`
	ProgressPercent   float64       `json:"progressPercent"`
	BMI               float64       `json:"bmi,omitempty"`
	BMICategory       string        `json:"bmiCategory,omitempty"`
	WeeklyAverage     float64       `json:"weeklyAverage"`
	PredictedGoalDate string        `json:"predictedGoalDate,omitempty"`
	CaloriesToday     int           `json:"caloriesToday"`
	DailyCalorieGoal  int           `json:"dailyCalorieGoal"`
	CalorieBalance    int           `json:"calorieBalance"`
	DailyCalorieAvg   int           `json:"dailyCalorieAverage"`
	AvgSleepThisWeek  float64       `json:"avgSleepThisWeek"`
	AvgWaterThisWeek  int           `json:"avgWaterThisWeek"`
	WeightStreak      int           `json:"weightStreak"`
	MoodStreak        int           `json:"moodStreak"`
	Insight           stats.Insight `json:"insight"`
}

// DashboardService assembles the dashboard from every metric.
type DashboardService struct {
	profiles profileGetter
	weights  weightView
	calories calorieView
	wellness wellnessView
	moods    moodView
	clock    clock.Clock
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(p profileGetter, w weightView, c calorieView, wl wellnessView, m moodView, clk clock.Clock) *DashboardService {
	if clk == nil {
		clk = clock.New()
	}
	return &DashboardService{profiles: p, weights: w, calories: c, wellness: wl, moods: m, clock: clk}
}

// Get loads every metric concurrently and derives the summary.
func (s *DashboardService) Get(ctx context.Context, userID int64) (*Dashboard, error) {
	var (
		profile  *domain.Profile
		weights  []domain.WeightEntry
		calories []domain.CalorieEntry
		wellness []domain.WellnessEntry
		moods    []domain.MoodEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { profile, err = s.profiles.Get(gctx, userID); return })
	g.Go(func() (err error) { weights, err = s.weights.View(gctx, userID); return })
	g.Go(func() (err error) { calories, err = s.calories.View(gctx, userID); return })
	g.Go(func() (err error) { wellness, err = s.wellness.View(gctx, userID); return })
	g.Go(func() (err error) { moods, err = s.moods.View(gctx, userID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	d := &Dashboard{Today: domain.DayString(now)}

	d.CurrentWeight = profile.StartWeight
	if len(weights) > 0 {
		d.CurrentWeight = domain.Round(weights[len(weights)-1].Pounds(), 1)
	}
	d.StartWeight = profile.StartWeight
	if d.StartWeight == 0 {
		d.StartWeight = d.CurrentWeight
	}
	d.TargetWeight = profile.TargetWeight
	if d.TargetWeight == 0 {
		d.TargetWeight = d.CurrentWeight
	}
	d.TotalLost = domain.Round(d.StartWeight-d.CurrentWeight, 1)
	d.Remaining = domain.Round(d.CurrentWeight-d.TargetWeight, 1)
	d.ProgressPercent = domain.Round(stats.Progress(d.StartWeight, d.CurrentWeight, d.TargetWeight), 0)
	if profile.HeightInches > 0 {
		d.BMI = stats.BMI(d.CurrentWeight, profile.HeightInches)
		d.BMICategory = stats.BMICategory(d.BMI)
	}

	points := weightPoints(weights)
	d.WeeklyAverage = stats.WeeklyAverage(points)
	if at, ok := stats.PredictGoalDate(points, d.TargetWeight, now); ok {
		d.PredictedGoalDate = domain.DayString(at)
	}

	d.DailyCalorieGoal = profile.DailyCalorieGoal
	if d.DailyCalorieGoal == 0 {
		d.DailyCalorieGoal = 2000
	}
	for _, c := range stats.Filter(stats.Today(now), calories) {
		d.CaloriesToday += c.Calories
	}
	d.CalorieBalance = d.DailyCalorieGoal - d.CaloriesToday
	week := stats.ThisWeek(now)
	var weekCalories []int
	for _, c := range stats.Filter(week, calories) {
		weekCalories = append(weekCalories, c.Calories)
	}
	d.DailyCalorieAvg = stats.DailyAverage(weekCalories)

	var sleep, water []float64
	for _, w := range stats.Filter(week, wellness) {
		sleep = append(sleep, w.SleepHours)
		water = append(water, float64(w.WaterGlasses))
	}
	d.AvgSleepThisWeek = domain.Round(stats.Mean(sleep), 1)
	d.AvgWaterThisWeek = int(domain.Round(stats.Mean(water), 0))

	d.WeightStreak = stats.Streak(stats.Days(weights), now)
	d.MoodStreak = stats.Streak(stats.Days(moods), now)
	d.Insight = stats.DailyInsight(stats.InsightInput{
		Weights:          weights,
		Calories:         calories,
		Wellness:         wellness,
		Moods:            moods,
		DailyCalorieGoal: d.DailyCalorieGoal,
	}, now)
	return d, nil
}
