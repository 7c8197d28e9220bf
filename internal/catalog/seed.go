package catalog

import (
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
)

// Seed returns a small built-in catalog, used when no experience store is
// configured.
func Seed() []domain.Experience {
	now := time.Now()
	return []domain.Experience{
		{
			ID:          uuid.New(),
			Title:       "Night Kayaking",
			Description: "Paddle through glowing waters under the stars with an expert guide.",
			HostName:    "Asha",
			Location:    "Mandovi River",
			Categories:  []domain.Category{domain.CategoryAdventure},
			Rating:      4.8,
			ReviewCount: 124,
			Reviews: []domain.Review{
				{ID: uuid.New(), UserID: uuid.New(), UserName: "Ananya", Rating: 5, Comment: "Absolutely loved it! A must-try.", Date: now.Add(-48 * time.Hour)},
			},
			IsPopular: true,
			Slots: []domain.Slot{
				{ID: uuid.New(), StartTime: now.Add(24 * time.Hour), SeatsAvailable: 8, TotalSeats: 10, Price: 1800},
				{ID: uuid.New(), StartTime: now.Add(48 * time.Hour), SeatsAvailable: 10, TotalSeats: 10, Price: 1800},
			},
		},
		{
			ID:          uuid.New(),
			Title:       "Sushi Making Class",
			Description: "Roll, slice and plate your own omakase menu with a working chef.",
			HostName:    "Kenji",
			Location:    "Indiranagar",
			Categories:  []domain.Category{domain.CategoryFood, domain.CategoryWorkshop},
			Rating:      4.9,
			ReviewCount: 86,
			Reviews: []domain.Review{
				{ID: uuid.New(), UserID: uuid.New(), UserName: "Rohan", Rating: 5, Comment: "Kenji is a fantastic teacher.", Date: now.Add(-96 * time.Hour)},
				{ID: uuid.New(), UserID: uuid.New(), UserName: "Priya", Rating: 4.5, Comment: "Worth every rupee.", Date: now.Add(-240 * time.Hour)},
			},
			IsTrending: true,
			Slots: []domain.Slot{
				{ID: uuid.New(), StartTime: now.Add(72 * time.Hour), SeatsAvailable: 6, TotalSeats: 8, Price: 4000},
			},
		},
		{
			ID:          uuid.New(),
			Title:       "Pottery Class",
			Description: "An afternoon at the wheel, from wedging clay to your first thrown bowl.",
			HostName:    "Mira",
			Location:    "Bandra West",
			Categories:  []domain.Category{domain.CategoryArt, domain.CategoryWorkshop},
			Rating:      4.7,
			ReviewCount: 58,
			Slots: []domain.Slot{
				{ID: uuid.New(), StartTime: now.Add(24 * time.Hour), SeatsAvailable: 5, TotalSeats: 6, Price: 2500},
				{ID: uuid.New(), StartTime: now.Add(96 * time.Hour), SeatsAvailable: 6, TotalSeats: 6, Price: 2500},
			},
		},
		{
			ID:          uuid.New(),
			Title:       "Silent Disco",
			Description: "Three channels, one rooftop, headphones on until sunrise.",
			HostName:    "Dev",
			Location:    "Koramangala",
			Categories:  []domain.Category{domain.CategoryMusic},
			Rating:      4.5,
			ReviewCount: 210,
			IsPopular:   true,
			Slots: []domain.Slot{
				{ID: uuid.New(), StartTime: now.Add(36 * time.Hour), SeatsAvailable: 40, TotalSeats: 50, Price: 1200},
			},
		},
		{
			ID:          uuid.New(),
			Title:       "Sunrise Yoga Retreat",
			Description: "Guided breathwork and a slow flow as the city wakes up.",
			HostName:    "Leela",
			Location:    "Cubbon Park",
			Categories:  []domain.Category{domain.CategoryWellness},
			Rating:      4.6,
			ReviewCount: 47,
			Slots: []domain.Slot{
				{ID: uuid.New(), StartTime: now.Add(18 * time.Hour), SeatsAvailable: 12, TotalSeats: 15, Price: 900},
			},
		},
	}
}
