package domain

import (
	"context"
	"time"
)

// Preferences are per-user display and input settings.
type Preferences struct {
	WeightUnit string `json:"weightUnit"`
	AutoCommit bool   `json:"autoCommit"`
	DarkMode   bool   `json:"darkMode"`
}

// PrivacySettings control what other users may see.
type PrivacySettings struct {
	ShareWeight   bool `json:"shareWeight"`
	ShareMood     bool `json:"shareMood"`
	SharePhotos   bool `json:"sharePhotos"`
	ShowInFeed    bool `json:"showInFeed"`
	AllowReaction bool `json:"allowReaction"`
}

// Profile holds body metrics and goals. Weights are in pounds.
type Profile struct {
	UserID           int64           `json:"userId"`
	Name             string          `json:"name"`
	HeightInches     float64         `json:"heightInches"`
	StartWeight      float64         `json:"startWeight"`
	TargetWeight     float64         `json:"targetWeight"`
	CurrentWeight    float64         `json:"currentWeight"`
	DailyCalorieGoal int             `json:"dailyCalorieGoal"`
	AvatarURL        string          `json:"avatarUrl,omitempty"`
	Preferences      Preferences     `json:"preferences"`
	Privacy          PrivacySettings `json:"privacy"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// DefaultProfile is what a new account starts with.
func DefaultProfile(userID int64, name string) Profile {
	return Profile{
		UserID:           userID,
		Name:             name,
		DailyCalorieGoal: 2000,
		Preferences:      Preferences{WeightUnit: "lb", AutoCommit: true},
	}
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name             *string          `json:"name" validate:"omitempty,min=1,max=100"`
	HeightInches     *float64         `json:"heightInches" validate:"omitempty,gt=0,lte=120"`
	StartWeight      *float64         `json:"startWeight" validate:"omitempty,gte=50,lte=500"`
	TargetWeight     *float64         `json:"targetWeight" validate:"omitempty,gte=50,lte=500"`
	CurrentWeight    *float64         `json:"currentWeight" validate:"omitempty,gte=50,lte=500"`
	DailyCalorieGoal *int             `json:"dailyCalorieGoal" validate:"omitempty,gte=500,lte=10000"`
	AvatarURL        *string          `json:"avatarUrl" validate:"omitempty,url"`
	Preferences      *Preferences     `json:"preferences"`
	Privacy          *PrivacySettings `json:"privacy"`
}

// Apply copies the set fields of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.HeightInches != nil {
		p.HeightInches = *u.HeightInches
	}
	if u.StartWeight != nil {
		p.StartWeight = *u.StartWeight
	}
	if u.TargetWeight != nil {
		p.TargetWeight = *u.TargetWeight
	}
	if u.CurrentWeight != nil {
		p.CurrentWeight = *u.CurrentWeight
	}
	if u.DailyCalorieGoal != nil {
		p.DailyCalorieGoal = *u.DailyCalorieGoal
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	if u.Preferences != nil {
		p.Preferences = *u.Preferences
	}
	if u.Privacy != nil {
		p.Privacy = *u.Privacy
	}
}

// ProfileRepository is the port for profile persistence.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
}
