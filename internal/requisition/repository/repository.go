package repository

import (
	"errors"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a save loses an optimistic-lock race.
	ErrConflict = errors.New("record was modified concurrently")
)

// Repositories groups the requisition repositories.
type Repositories struct {
	Request *RequestRepository
	Counter *CounterRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Request: NewRequestRepository(db),
		Counter: NewCounterRepository(db),
	}
}

// Models lists every table owned by this package, in migration order.
func Models() []interface{} {
	return []interface{}{
		&entity.Counter{},
		&entity.PurchaseRequest{},
		&entity.LineItem{},
		&entity.Attachment{},
		&entity.ApprovalEntry{},
		&entity.ChecklistStep{},
	}
}

// AutoMigrate creates or updates the requisition tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
