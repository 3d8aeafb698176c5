package repository

import (
	"skylane/internal/database"
)

type Repositories struct {
	Checkins *CheckinRepository
	Events   *CheckinEventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Checkins: NewCheckinRepository(db),
		Events:   NewCheckinEventRepository(db),
	}
}
