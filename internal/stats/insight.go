package stats

import (
	"fmt"
	"math"
	"time"

	"fitflow/internal/domain"
)

// Insight is a short observation drawn from recent logs.
type Insight struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// InsightInput is everything DailyInsight looks at.
type InsightInput struct {
	Weights          []domain.WeightEntry
	Calories         []domain.CalorieEntry
	Wellness         []domain.WellnessEntry
	Moods            []domain.MoodEntry
	DailyCalorieGoal int
}

// DailyInsight returns the first matching observation, in priority order:
// fast recent loss, sleep and energy correlation, hydration, calorie
// precision, tracking streak. Without a pattern it nudges the user to log.
func DailyInsight(in InsightInput, now time.Time) Insight {
	if ins, ok := weightTrend(in.Weights); ok {
		return ins
	}
	if ins, ok := sleepEnergy(in.Wellness, in.Moods); ok {
		return ins
	}
	week := ThisWeek(now)
	hydrated := 0
	for _, w := range Filter(week, in.Wellness) {
		if w.WaterGlasses >= 8 {
			hydrated++
		}
	}
	if hydrated >= 5 {
		return Insight{
			Kind:    "hydration",
			Title:   "Hydration Streak",
			Message: fmt.Sprintf("You've hit your water goal %d days this week. This consistency builds lasting habits.", hydrated),
		}
	}
	goal := in.DailyCalorieGoal
	if goal <= 0 {
		goal = 2000
	}
	perDay := map[string]int{}
	for _, c := range Filter(week, in.Calories) {
		perDay[c.Day] += c.Calories
	}
	within := 0
	for _, total := range perDay {
		if abs(total-goal) <= 200 {
			within++
		}
	}
	if within >= 5 {
		return Insight{
			Kind:    "calories",
			Title:   "Calorie Mastery",
			Message: fmt.Sprintf("%d days within 200 calories of your goal. You're developing precision and control.", within),
		}
	}
	if streak := Streak(Days(in.Weights), now); streak >= 7 {
		return Insight{
			Kind:    "streak",
			Title:   "Tracking Streak",
			Message: fmt.Sprintf("%d days of consistent tracking. You're building the discipline that creates transformation.", streak),
		}
	}

	today := Today(now)
	if len(Filter(today, in.Weights))+len(Filter(today, in.Calories))+len(Filter(today, in.Wellness))+len(Filter(today, in.Moods)) > 0 {
		return Insight{
			Kind:    "momentum",
			Title:   "Building Momentum",
			Message: "Every log builds your data foundation. Patterns will emerge as you continue tracking.",
		}
	}
	return Insight{
		Kind:    "start",
		Title:   "Start Your Day Right",
		Message: "Log your first entry today. Small actions compound into remarkable results.",
	}
}

func weightTrend(weights []domain.WeightEntry) (Insight, bool) {
	recent := weights
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	if len(recent) < 5 {
		return Insight{}, false
	}
	avg := (recent[0].Pounds() - recent[len(recent)-1].Pounds()) / float64(len(recent))
	if avg <= 0.3 {
		return Insight{}, false
	}
	return Insight{
		Kind:    "weight",
		Title:   "Excellent Progress",
		Message: fmt.Sprintf("You're losing an average of %.1f lbs per day this week. Your consistency is paying off.", avg),
	}, true
}

func sleepEnergy(wellness []domain.WellnessEntry, moods []domain.MoodEntry) (Insight, bool) {
	energyByDay := make(map[string]int, len(moods))
	for _, m := range moods {
		if _, ok := energyByDay[m.Day]; !ok {
			energyByDay[m.Day] = m.EnergyLevel
		}
	}
	var good, poor []float64
	for _, w := range wellness {
		energy, ok := energyByDay[w.Day]
		if !ok {
			continue
		}
		if energy == 0 {
			energy = 5
		}
		if w.SleepHours >= 7 {
			good = append(good, float64(energy))
		} else {
			poor = append(poor, float64(energy))
		}
	}
	if len(good)+len(poor) < 5 || len(good) == 0 || len(poor) == 0 {
		return Insight{}, false
	}
	goodAvg, poorAvg := Mean(good), Mean(poor)
	if goodAvg-poorAvg < 1 {
		return Insight{}, false
	}
	pct := math.Round((goodAvg - poorAvg) / poorAvg * 100)
	return Insight{
		Kind:    "sleep",
		Title:   "Sleep Quality Matters",
		Message: fmt.Sprintf("Your energy is %.0f%% higher on days you sleep 7+ hours. Prioritize rest.", pct),
	}, true
}

// Days returns the entry dates of entries, for Streak.
func Days[E domain.Entry](entries []E) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.EntryDay()
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
