package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingTentative BookingStatus = "tentative"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is one user's reservation for one slot. Status moves one way:
// tentative -> confirmed, or tentative -> cancelled when the flow is abandoned
// past ExpiresAt. PaymentRef is set only on confirmed bookings.
type Booking struct {
	ID           uuid.UUID
	ExperienceID uuid.UUID
	SlotID       uuid.UUID
	UserID       uuid.UUID
	Status       BookingStatus
	Participants int
	TotalAmount  float64
	OrderRef     string
	PaymentRef   string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func NewBooking(experienceID, slotID, userID uuid.UUID, participants int, unitPrice float64, ttl time.Duration) Booking {
	now := time.Now()
	return Booking{
		ID:           uuid.New(),
		ExperienceID: experienceID,
		SlotID:       slotID,
		UserID:       userID,
		Status:       BookingTentative,
		Participants: participants,
		TotalAmount:  unitPrice * float64(participants),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}
