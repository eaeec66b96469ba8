package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus: at most one active plan exists per client.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

// Plan represents a workout+diet bundle assigned to a client by their trainer.
// Completed plans are kept for history and never edited.
type Plan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Title     string             `bson:"title" json:"title"`
	Status    PlanStatus         `bson:"status" json:"status"`
	StartDate time.Time          `bson:"startDate" json:"startDate"`
	EndDate   time.Time          `bson:"endDate" json:"endDate"`
	Workouts  []Workout          `bson:"workouts" json:"workouts"`
	Diet      *Diet              `bson:"diet,omitempty" json:"diet"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Workout is a value object owned by its plan.
type Workout struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	DayOfWeek string             `bson:"dayOfWeek" json:"dayOfWeek"`
	Title     string             `bson:"title" json:"title"`
	Exercises []string           `bson:"exercises" json:"exercises"`
	MediaLink string             `bson:"mediaLink,omitempty" json:"mediaLink,omitempty"`
}

type Diet struct {
	ID    primitive.ObjectID `bson:"id" json:"id"`
	Title string             `bson:"title" json:"title"`
	Focus string             `bson:"focus" json:"focus"`
	Meals []Meal             `bson:"meals" json:"meals"`
}

type Meal struct {
	ID       primitive.ObjectID `bson:"id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Calories float64            `bson:"calories" json:"calories"`
	PhotoURL string             `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Workouts = make([]Workout, len(p.Workouts))
	for i, w := range p.Workouts {
		w.Exercises = append([]string(nil), w.Exercises...)
		c.Workouts[i] = w
	}
	if p.Diet != nil {
		d := *p.Diet
		d.Meals = append([]Meal(nil), p.Diet.Meals...)
		c.Diet = &d
	}
	return &c
}

// Draft defaults, matching what the trainer form falls back to.
const (
	DefaultPlanTitle     = "Custom Plan"
	DefaultWorkoutDay    = "Monday"
	DefaultWorkoutTitle  = "Routine"
	DefaultDietTitle     = "Nutrition Plan"
	DefaultDietFocus     = "General Health"
	DefaultPlanWeeks     = 4
	MaxPlanDurationWeeks = 52
)

// PlanDraft is the trainer's input for a new plan. Exercise and meal lines
// must already be split into non-empty lines (see SplitLines).
type PlanDraft struct {
	Title         string         `json:"title" validate:"max=200"`
	DurationWeeks int            `json:"durationWeeks" validate:"gte=0,lte=52"`
	Workouts      []WorkoutDraft `json:"workouts" validate:"dive"`
	Diet          *DietDraft     `json:"diet"`
}

type WorkoutDraft struct {
	DayOfWeek string   `json:"dayOfWeek" validate:"max=60"`
	Title     string   `json:"title" validate:"max=200"`
	Exercises []string `json:"exercises" validate:"dive,required"`
	MediaLink string   `json:"mediaLink" validate:"omitempty,url"`
}

type DietDraft struct {
	Title string      `json:"title" validate:"max=200"`
	Focus string      `json:"focus" validate:"max=200"`
	Meals []MealDraft `json:"meals" validate:"dive"`
}

type MealDraft struct {
	Name     string  `json:"name" validate:"required"`
	Calories float64 `json:"calories" validate:"gte=0"`
	PhotoURL string  `json:"photoUrl" validate:"omitempty,url"`
}

// SplitLines splits free text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
