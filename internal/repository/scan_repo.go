package repository

import (
	"context"
	"time"

	"go-productguard/internal/model"
	"go-productguard/internal/scope"

	"gorm.io/gorm"
)

// HotspotPoint is one FAKE scan location.
type HotspotPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// OutcomeCounts aggregates the ledger by outcome.
type OutcomeCounts struct {
	Genuine int64 `gorm:"column:genuine"`
	Fake    int64 `gorm:"column:fake"`
}

// ScanRepository is the append-only scan ledger. It has no update or delete.
type ScanRepository interface {
	Append(ctx context.Context, event *model.ScanEvent) error
	FakeLocations(ctx context.Context, s scope.Scope) ([]HotspotPoint, error)
	CountOutcomes(ctx context.Context, s scope.Scope) (*OutcomeCounts, error)
	CountByCode(ctx context.Context, code string) (int64, error)
}

type scanRepo struct {
	db *gorm.DB
}

func NewScanRepo(db *gorm.DB) ScanRepository {
	return &scanRepo{db}
}

func (r *scanRepo) Append(ctx context.Context, event *model.ScanEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// scoped attributes scans to a company through the code they name. Scans of
// unknown codes have no company and only appear in a global scope.
func (r *scanRepo) scoped(ctx context.Context, s scope.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.ScanEvent{})
	if _, restricted := s.CompanyID(); restricted {
		q = q.Joins("JOIN qr_codes ON qr_codes.code = scan_events.code").
			Joins("JOIN products ON products.id = qr_codes.product_id")
	}
	return scope.Apply(q, s, "products.company_id")
}

func (r *scanRepo) FakeLocations(ctx context.Context, s scope.Scope) ([]HotspotPoint, error) {
	var points []HotspotPoint
	err := r.scoped(ctx, s).
		Select("scan_events.latitude, scan_events.longitude, scan_events.created_at").
		Where("scan_events.outcome = ?", model.OutcomeFake).
		Scan(&points).Error
	return points, err
}

func (r *scanRepo) CountOutcomes(ctx context.Context, s scope.Scope) (*OutcomeCounts, error) {
	var counts OutcomeCounts
	err := r.scoped(ctx, s).
		Select(`
			COALESCE(SUM(CASE WHEN scan_events.outcome = ? THEN 1 ELSE 0 END), 0) AS genuine,
			COALESCE(SUM(CASE WHEN scan_events.outcome = ? THEN 1 ELSE 0 END), 0) AS fake
		`, model.OutcomeGenuine, model.OutcomeFake).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *scanRepo) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ScanEvent{}).Where("code = ?", code).Count(&count).Error
	return count, err
}
