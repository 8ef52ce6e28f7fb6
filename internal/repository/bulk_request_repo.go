package repository

import (
	"context"
	"errors"

	"go-productguard/internal/model"
	"go-productguard/internal/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotPending is returned by Transition when the request was already decided.
var ErrNotPending = errors.New("bulk request is not pending")

type BulkRequestRepository interface {
	Create(ctx context.Context, req *model.BulkRequest) error
	FindByID(ctx context.Context, s scope.Scope, id uuid.UUID) (*model.BulkRequest, error)
	FindAll(ctx context.Context, s scope.Scope) ([]model.BulkRequest, error)
	// Transition moves a PENDING request to status inside tx. It returns
	// gorm.ErrRecordNotFound for unknown ids and ErrNotPending otherwise.
	Transition(tx *gorm.DB, id uuid.UUID, status model.BulkStatus, actor string) error
}

type bulkRequestRepo struct {
	db *gorm.DB
}

func NewBulkRequestRepo(db *gorm.DB) BulkRequestRepository {
	return &bulkRequestRepo{db}
}

func (r *bulkRequestRepo) Create(ctx context.Context, req *model.BulkRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *bulkRequestRepo) FindByID(ctx context.Context, s scope.Scope, id uuid.UUID) (*model.BulkRequest, error) {
	var req model.BulkRequest
	err := scope.Apply(r.db.WithContext(ctx), s, "company_id").
		Preload("Company").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bulkRequestRepo) FindAll(ctx context.Context, s scope.Scope) ([]model.BulkRequest, error) {
	var reqs []model.BulkRequest
	err := scope.Apply(r.db.WithContext(ctx), s, "company_id").
		Preload("Company").
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// Transition is a compare-and-set on status: only a row still PENDING is
// updated, so among concurrent callers exactly one sees an affected row.
func (r *bulkRequestRepo) Transition(tx *gorm.DB, id uuid.UUID, status model.BulkStatus, actor string) error {
	res := tx.Model(&model.BulkRequest{}).
		Where("id = ? AND status = ?", id, model.BulkPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_by": actor,
			"updated_by": actor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.Model(&model.BulkRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrNotPending
}
