package domain

import "github.com/google/uuid"

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Avatar    string
	Interests []Category
	Favorites []uuid.UUID
	Following []string
}

func (u *User) IsFavorite(experienceID uuid.UUID) bool {
	for _, id := range u.Favorites {
		if id == experienceID {
			return true
		}
	}
	return false
}

func (u *User) IsFollowing(hostName string) bool {
	for _, name := range u.Following {
		if name == hostName {
			return true
		}
	}
	return false
}
