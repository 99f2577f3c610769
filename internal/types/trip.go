package types

import (
	"time"

	"github.com/google/uuid"
)

// BudgetTier is one of three fixed cost-range categories applied to trip
// generation. Unknown values pass through verbatim in the prompt.
type BudgetTier string

const (
	BudgetLow    BudgetTier = "Low"
	BudgetMedium BudgetTier = "Medium"
	BudgetHigh   BudgetTier = "High"
)

// RangeText maps a tier to the cost-range string used in the model prompt.
func (b BudgetTier) RangeText() string {
	switch b {
	case BudgetLow:
		return "500 - 1000 USD"
	case BudgetMedium:
		return "1000 - 2500 USD"
	case BudgetHigh:
		return "2500+ USD"
	default:
		return string(b)
	}
}

// Trip is the top-level planning record owned by one user.
type Trip struct {
	ID            uuid.UUID  `json:"trip_id"`
	UserID        uuid.UUID  `json:"user_id"`
	Title         string     `json:"title"`
	Destination   string     `json:"destination"`
	StartDate     *string    `json:"start_date"`
	EndDate       *string    `json:"end_date"`
	NoOfTravelers int        `json:"no_of_travelers"`
	Budget        BudgetTier `json:"budget"`
	Notes         *string    `json:"notes"`
	Banner        *string    `json:"banner"`
	LastUpdated   time.Time  `json:"last_updated"`
}

// GenerateTripRequest is the body of POST /trips/generate.
type GenerateTripRequest struct {
	Title         string     `json:"title"`
	Destination   string     `json:"destination"`
	StartDate     *string    `json:"start_date"`
	EndDate       *string    `json:"end_date"`
	NoOfDays      int        `json:"no_of_days"`
	NoOfTravelers int        `json:"no_of_travelers"`
	Budget        BudgetTier `json:"budget"`
	Notes         string     `json:"notes"`
}

type RenameTripRequest struct {
	Title string `json:"title"`
}

// AddPlaceRequest is the body of POST /trips/{id}/itinerary.
type AddPlaceRequest struct {
	DayNumber   int    `json:"day_number"`
	PlaceName   string `json:"place_name"`
	Destination string `json:"destination"`
}
