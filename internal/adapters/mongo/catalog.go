package mongo

import (
	"context"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// CatalogRepository serves experiences from the experiences collection and
// owns the seat counters. Seat updates go through filtered $inc updates, so a
// reservation either takes all its seats in one matched write or none.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("experiences"),
		logger: logger,
	}
}

type ExperienceDoc struct {
	ID          uuid.UUID         `bson:"_id"`
	Title       string            `bson:"title"`
	Description string            `bson:"description"`
	HostName    string            `bson:"host_name"`
	HostAvatar  string            `bson:"host_avatar"`
	Image       string            `bson:"image"`
	Location    string            `bson:"location"`
	Categories  []domain.Category `bson:"categories"`
	Rating      float64           `bson:"rating"`
	ReviewCount int               `bson:"review_count"`
	Reviews     []ReviewDoc       `bson:"reviews"`
	Slots       []SlotDoc         `bson:"slots"`
	IsPopular   bool              `bson:"is_popular"`
	IsTrending  bool              `bson:"is_trending"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

type SlotDoc struct {
	ID             uuid.UUID `bson:"id"`
	StartTime      time.Time `bson:"start_time"`
	SeatsAvailable int       `bson:"seats_available"`
	TotalSeats     int       `bson:"total_seats"`
	Price          float64   `bson:"price"`
}

type ReviewDoc struct {
	ID         uuid.UUID `bson:"id"`
	UserID     uuid.UUID `bson:"user_id"`
	UserName   string    `bson:"user_name"`
	UserAvatar string    `bson:"user_avatar"`
	Rating     float64   `bson:"rating"`
	Comment    string    `bson:"comment"`
	Date       time.Time `bson:"date"`
}

func (d ExperienceDoc) toDomain() domain.Experience {
	exp := domain.Experience{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		HostName:    d.HostName,
		HostAvatar:  d.HostAvatar,
		Image:       d.Image,
		Location:    d.Location,
		Categories:  d.Categories,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		IsPopular:   d.IsPopular,
		IsTrending:  d.IsTrending,
	}
	for _, s := range d.Slots {
		exp.Slots = append(exp.Slots, domain.Slot{
			ID:             s.ID,
			StartTime:      s.StartTime,
			SeatsAvailable: s.SeatsAvailable,
			TotalSeats:     s.TotalSeats,
			Price:          s.Price,
		})
	}
	for _, r := range d.Reviews {
		exp.Reviews = append(exp.Reviews, domain.Review{
			ID:         r.ID,
			UserID:     r.UserID,
			UserName:   r.UserName,
			UserAvatar: r.UserAvatar,
			Rating:     r.Rating,
			Comment:    r.Comment,
			Date:       r.Date,
		})
	}
	return exp
}

func fromDomain(exp domain.Experience) ExperienceDoc {
	doc := ExperienceDoc{
		ID:          exp.ID,
		Title:       exp.Title,
		Description: exp.Description,
		HostName:    exp.HostName,
		HostAvatar:  exp.HostAvatar,
		Image:       exp.Image,
		Location:    exp.Location,
		Categories:  exp.Categories,
		Rating:      exp.Rating,
		ReviewCount: exp.ReviewCount,
		IsPopular:   exp.IsPopular,
		IsTrending:  exp.IsTrending,
	}
	for _, s := range exp.Slots {
		doc.Slots = append(doc.Slots, SlotDoc{
			ID:             s.ID,
			StartTime:      s.StartTime,
			SeatsAvailable: s.SeatsAvailable,
			TotalSeats:     s.TotalSeats,
			Price:          s.Price,
		})
	}
	for _, r := range exp.Reviews {
		doc.Reviews = append(doc.Reviews, ReviewDoc{
			ID:         r.ID,
			UserID:     r.UserID,
			UserName:   r.UserName,
			UserAvatar: r.UserAvatar,
			Rating:     r.Rating,
			Comment:    r.Comment,
			Date:       r.Date,
		})
	}
	return doc
}

func (c *CatalogRepository) GetExperiences(ctx context.Context) ([]domain.Experience, error) {
	cursor, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		c.logger.WithError(err).Error("failed to list experiences")
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.Experience
	for cursor.Next(ctx) {
		var doc ExperienceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cursor.Err()
}

func (c *CatalogRepository) GetExperience(ctx context.Context, id uuid.UUID) (*domain.Experience, error) {
	var doc ExperienceDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get experience")
		return nil, err
	}
	exp := doc.toDomain()
	return &exp, nil
}

func (c *CatalogRepository) GetSlot(ctx context.Context, experienceID, slotID uuid.UUID) (domain.Slot, error) {
	exp, err := c.GetExperience(ctx, experienceID)
	if err != nil {
		return domain.Slot{}, err
	}
	slot, ok := exp.SlotByID(slotID)
	if !ok {
		return domain.Slot{}, domain.ErrNotFound
	}
	return slot, nil
}

func (c *CatalogRepository) ReserveSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error {
	result, err := c.coll.UpdateOne(ctx,
		bson.M{
			"_id":   experienceID,
			"slots": bson.M{"$elemMatch": bson.M{"id": slotID, "seats_available": bson.M{"$gte": n}}},
		},
		bson.M{
			"$inc": bson.M{"slots.$.seats_available": -n},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		c.logger.WithError(err).Error("failed to reserve seats")
		return err
	}
	if result.MatchedCount == 0 {
		// the filter missed: either the slot is unknown or it lacks seats
		if _, slotErr := c.GetSlot(ctx, experienceID, slotID); slotErr != nil {
			return slotErr
		}
		return domain.ErrCapacityExceeded
	}
	return nil
}

// ReleaseSeats restores n seats, clamped at the slot's total so a double
// release never pushes seats_available past total_seats.
func (c *CatalogRepository) ReleaseSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error {
	result, err := c.coll.UpdateOne(ctx,
		bson.M{
			"_id":   experienceID,
			"slots": bson.M{"$elemMatch": bson.M{"id": slotID}},
		},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"slots": bson.M{"$map": bson.M{
					"input": "$slots",
					"as":    "s",
					"in": bson.M{"$cond": bson.A{
						bson.M{"$eq": bson.A{"$$s.id", slotID}},
						bson.M{"$mergeObjects": bson.A{"$$s", bson.M{
							"seats_available": bson.M{"$min": bson.A{
								bson.M{"$add": bson.A{"$$s.seats_available", n}},
								"$$s.total_seats",
							}},
						}}},
						"$$s",
					}},
				}},
				"updated_at": "$$NOW",
			}}},
		},
	)
	if err != nil {
		c.logger.WithError(err).Error("failed to release seats")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) CreateExperience(ctx context.Context, exp domain.Experience) error {
	doc := fromDomain(exp)
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		c.logger.WithError(err).Error("failed to create experience")
		return err
	}
	return nil
}

// SeedExperiences inserts the given experiences concurrently, skipping ones
// that already exist.
func (c *CatalogRepository) SeedExperiences(ctx context.Context, experiences []domain.Experience) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, exp := range experiences {
		exp := exp
		g.Go(func() error {
			err := c.CreateExperience(gctx, exp)
			if mongo.IsDuplicateKeyError(err) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
