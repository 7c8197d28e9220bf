package domain

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAdventure Category = "Adventure"
	CategoryFood      Category = "Food"
	CategoryArt       Category = "Art"
	CategoryMusic     Category = "Music"
	CategoryWorkshop  Category = "Workshop"
	CategoryWellness  Category = "Wellness"
)

// Slot is one bookable time instance of an experience.
// Invariant: 0 <= SeatsAvailable <= TotalSeats.
type Slot struct {
	ID             uuid.UUID
	StartTime      time.Time
	SeatsAvailable int
	TotalSeats     int
	Price          float64
}

type Review struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	UserName   string
	UserAvatar string
	Rating     float64
	Comment    string
	Date       time.Time
}

type Experience struct {
	ID          uuid.UUID
	Title       string
	Description string
	HostName    string
	HostAvatar  string
	Image       string
	Location    string
	Categories  []Category
	Rating      float64
	ReviewCount int
	Reviews     []Review
	Slots       []Slot
	IsPopular   bool
	IsTrending  bool
}

// SlotByID returns the slot with the given id, or false when the experience
// has no such slot.
func (e *Experience) SlotByID(slotID uuid.UUID) (Slot, bool) {
	for _, s := range e.Slots {
		if s.ID == slotID {
			return s, true
		}
	}
	return Slot{}, false
}
