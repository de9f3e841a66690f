package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"fitflow/internal/domain"
)

// ExportService writes a metric's history as CSV.
type ExportService struct {
	weights  weightView
	calories calorieView
	wellness wellnessView
	moods    moodView
}

// NewExportService creates an ExportService.
func NewExportService(w weightView, c calorieView, wl wellnessView, m moodView) *ExportService {
	return &ExportService{weights: w, calories: c, wellness: wl, moods: m}
}

// WriteCSV writes the user's active entries of kind to w, oldest first.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, userID int64, kind domain.Kind) error {
	var (
		header []string
		rows   [][]string
	)
	switch kind {
	case domain.KindWeight:
		list, err := s.weights.View(ctx, userID)
		if err != nil {
			return err
		}
		header = []string{"id", "date", "weight", "unit", "notes"}
		for _, e := range list {
			rows = append(rows, []string{formatID(e.ID), e.Day, ftoa(e.Value), e.Unit, e.Notes})
		}
	case domain.KindCalorie:
		list, err := s.calories.View(ctx, userID)
		if err != nil {
			return err
		}
		header = []string{"id", "date", "calories", "meal_type", "notes"}
		for _, e := range list {
			rows = append(rows, []string{formatID(e.ID), e.Day, strconv.Itoa(e.Calories), e.MealType, e.Notes})
		}
	case domain.KindWellness:
		list, err := s.wellness.View(ctx, userID)
		if err != nil {
			return err
		}
		header = []string{"id", "date", "sleep_hours", "water_glasses"}
		for _, e := range list {
			rows = append(rows, []string{formatID(e.ID), e.Day, ftoa(e.SleepHours), strconv.Itoa(e.WaterGlasses)})
		}
	case domain.KindMood:
		list, err := s.moods.View(ctx, userID)
		if err != nil {
			return err
		}
		header = []string{"id", "date", "mood", "energy_level", "notes"}
		for _, e := range list {
			rows = append(rows, []string{formatID(e.ID), e.Day, e.Mood, strconv.Itoa(e.EnergyLevel), e.Notes})
		}
	default:
		return domain.Invalid("unknown kind %q", kind)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func formatID(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
