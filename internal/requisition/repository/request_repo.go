package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository persists purchase requests and their child rows.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Attachments").
		Preload("ApprovalHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("AccountingSteps", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

// Create inserts a request together with its line items, attachments,
// history and checklist.
func (r *RequestRepository) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	if pr.Version == 0 {
		pr.Version = 1
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(pr).Error
	})
}

// FindByID loads a request with all child rows.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := r.preload(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&pr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pr, nil
}

// Find returns requests matching filter, newest first.
func (r *RequestRepository) Find(ctx context.Context, filter entity.RequestFilter) ([]entity.PurchaseRequest, error) {
	query := r.db.WithContext(ctx).Model(&entity.PurchaseRequest{})

	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var items []entity.PurchaseRequest
	err := r.preload(query).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// Save writes a mutated request. The update is conditional on the version the
// caller loaded; history rows are append-only and existing ones are skipped.
func (r *RequestRepository) Save(ctx context.Context, pr *entity.PurchaseRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.PurchaseRequest{}).
			Where("id = ? AND version = ?", pr.ID, pr.Version).
			Updates(map[string]interface{}{
				"status":                 pr.Status,
				"loaded_by_analyst_id":   pr.LoadedByAnalystID,
				"loaded_by_analyst_name": pr.LoadedByAnalystName,
				"version":                gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return fmt.Errorf("update request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConflict
		}

		for i := range pr.ApprovalHistory {
			pr.ApprovalHistory[i].RequestID = pr.ID
		}
		if len(pr.ApprovalHistory) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&pr.ApprovalHistory).Error; err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}

		for _, step := range pr.AccountingSteps {
			if err := tx.Model(&entity.ChecklistStep{}).
				Where("id = ? AND request_id = ?", step.ID, pr.ID).
				Updates(map[string]interface{}{
					"completed":    step.Completed,
					"completed_by": step.CompletedBy,
					"completed_at": step.CompletedAt,
				}).Error; err != nil {
				return fmt.Errorf("update checklist step %s: %w", step.ID, err)
			}
		}

		pr.Version++
		return nil
	})
}

// FindWithoutNumber lists requests whose number is not in PR-NNNNNN form.
func (r *RequestRepository) FindWithoutNumber(ctx context.Context) ([]entity.PurchaseRequest, error) {
	var items []entity.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("request_number !~ ?", `^PR-[0-9]+$`).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// UpdateNumber rewrites only the request_number column.
func (r *RequestRepository) UpdateNumber(ctx context.Context, id, number string) error {
	return r.db.WithContext(ctx).
		Model(&entity.PurchaseRequest{}).
		Where("id = ?", id).
		Update("request_number", number).Error
}
