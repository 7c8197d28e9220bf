package mongo

import (
	"context"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserStore holds user records (interests, favorites, followed hosts) in the
// users collection with a load-on-read, save-on-mutate contract.
type UserStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewUserStore(db *mongo.Database, logger observability.Logger) *UserStore {
	return &UserStore{
		coll:   db.Collection("users"),
		logger: logger,
	}
}

type UserDoc struct {
	ID        uuid.UUID         `bson:"_id"`
	Name      string            `bson:"name"`
	Email     string            `bson:"email"`
	Avatar    string            `bson:"avatar"`
	Interests []domain.Category `bson:"interests"`
	Favorites []uuid.UUID       `bson:"favorites"`
	Following []string          `bson:"following"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var doc UserDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to get user")
		return nil, err
	}
	return &domain.User{
		ID:        doc.ID,
		Name:      doc.Name,
		Email:     doc.Email,
		Avatar:    doc.Avatar,
		Interests: doc.Interests,
		Favorites: doc.Favorites,
		Following: doc.Following,
	}, nil
}

func (s *UserStore) UpsertUser(ctx context.Context, user domain.User) error {
	doc := UserDoc{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Interests: user.Interests,
		Favorites: user.Favorites,
		Following: user.Following,
		UpdatedAt: time.Now(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		s.logger.WithError(err).Error("failed to upsert user")
	}
	return err
}

// ToggleFavorite flips the favorite flag for the experience and returns the
// authoritative new state, so callers that flipped their display state
// optimistically can reconcile.
func (s *UserStore) ToggleFavorite(ctx context.Context, userID, experienceID uuid.UUID) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	update := bson.M{"$addToSet": bson.M{"favorites": experienceID}}
	nowFavorite := true
	if user.IsFavorite(experienceID) {
		update = bson.M{"$pull": bson.M{"favorites": experienceID}}
		nowFavorite = false
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		s.logger.WithError(err).Error("failed to toggle favorite")
		return false, err
	}
	return nowFavorite, nil
}

// ToggleFollow flips the followed state for the host and returns the new
// state.
func (s *UserStore) ToggleFollow(ctx context.Context, userID uuid.UUID, hostName string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	update := bson.M{"$addToSet": bson.M{"following": hostName}}
	nowFollowing := true
	if user.IsFollowing(hostName) {
		update = bson.M{"$pull": bson.M{"following": hostName}}
		nowFollowing = false
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		s.logger.WithError(err).Error("failed to toggle follow")
		return false, err
	}
	return nowFollowing, nil
}
