package repository

import (
	"context"
	"errors"
	"strings"

	"go-productguard/internal/model"
	"go-productguard/internal/scope"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCodeSpaceExhausted means every regeneration attempt for a batch collided.
var ErrCodeSpaceExhausted = errors.New("unable to allocate unique codes")

// CodeGenerator returns a fresh candidate code. Uniqueness is enforced by the
// store, not assumed from the generator.
type CodeGenerator func() string

// NewCode returns 32 upper-case hex characters of a random UUID (122 random bits).
func NewCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// CodeConfig tunes code allocation; zero fields fall back to defaults.
type CodeConfig struct {
	Generate    CodeGenerator
	BatchSize   int
	MaxAttempts int
	OnCollision func()
}

func (c CodeConfig) withDefaults() CodeConfig {
	if c.Generate == nil {
		c.Generate = NewCode
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.OnCollision == nil {
		c.OnCollision = func() {}
	}
	return c
}

type ProductRepository interface {
	// FindOrCreate and IssueCodes run on the caller's transaction.
	FindOrCreate(tx *gorm.DB, companyID uuid.UUID, row model.BulkRow, actor string) (*model.Product, error)
	IssueCodes(tx *gorm.DB, productID uuid.UUID, quantity int) ([]model.QRCode, error)

	FindCode(ctx context.Context, code string) (*model.QRCode, error)
	UpdateCodeStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error
	FindAll(ctx context.Context, s scope.Scope) ([]model.Product, error)
	CountProducts(ctx context.Context, s scope.Scope) (int64, error)
	CountCodes(ctx context.Context, s scope.Scope) (int64, error)
}

type productRepo struct {
	db    *gorm.DB
	codes CodeConfig
}

func NewProductRepo(db *gorm.DB, codes CodeConfig) ProductRepository {
	return &productRepo{db: db, codes: codes.withDefaults()}
}

// FindOrCreate inserts the product or, when (company, sku) already exists,
// reuses it and adds the row quantity to its quantity hint.
func (r *productRepo) FindOrCreate(tx *gorm.DB, companyID uuid.UUID, row model.BulkRow, actor string) (*model.Product, error) {
	product := model.Product{
		CompanyID:    companyID,
		Name:         row.ProductName,
		SKU:          row.SKU,
		BatchNumber:  row.BatchNumber,
		Description:  row.Description,
		QuantityHint: row.Quantity,
	}
	product.CreatedBy = actor
	product.UpdatedBy = actor

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "sku"}},
		DoNothing: true,
	}).Create(&product)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return &product, nil
	}

	var existing model.Product
	if err := tx.Where("company_id = ? AND sku = ?", companyID, row.SKU).First(&existing).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&existing).Updates(map[string]interface{}{
		"quantity_hint": gorm.Expr("quantity_hint + ?", row.Quantity),
		"updated_by":    actor,
	}).Error; err != nil {
		return nil, err
	}
	existing.QuantityHint += row.Quantity
	return &existing, nil
}

// IssueCodes inserts quantity new ACTIVE codes for productID in batches.
func (r *productRepo) IssueCodes(tx *gorm.DB, productID uuid.UUID, quantity int) ([]model.QRCode, error) {
	issued := make([]model.QRCode, 0, quantity)
	for remaining := quantity; remaining > 0; {
		n := min(remaining, r.codes.BatchSize)
		batch, err := r.insertBatch(tx, productID, n)
		if err != nil {
			return nil, err
		}
		issued = append(issued, batch...)
		remaining -= n
	}
	return issued, nil
}

// insertBatch runs each attempt in a savepoint so a unique violation only
// discards that attempt, not the caller's transaction.
func (r *productRepo) insertBatch(tx *gorm.DB, productID uuid.UUID, n int) ([]model.QRCode, error) {
	for attempt := 0; attempt < r.codes.MaxAttempts; attempt++ {
		batch := make([]model.QRCode, n)
		for i := range batch {
			batch[i] = model.QRCode{
				Code:      r.codes.Generate(),
				ProductID: productID,
				Status:    model.CodeActive,
			}
		}

		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&batch).Error
		})
		if err == nil {
			return batch, nil
		}
		if !IsUniqueViolation(err) {
			return nil, err
		}
		r.codes.OnCollision()
	}
	return nil, ErrCodeSpaceExhausted
}

func (r *productRepo) FindCode(ctx context.Context, code string) (*model.QRCode, error) {
	var qr model.QRCode
	if err := r.db.WithContext(ctx).Preload("Product.Company").Where("code = ?", code).First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *productRepo) UpdateCodeStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error {
	return r.db.WithContext(ctx).Model(&model.QRCode{}).Where("id = ?", id).Update("status", status).Error
}

func (r *productRepo) FindAll(ctx context.Context, s scope.Scope) ([]model.Product, error) {
	var products []model.Product
	err := scope.Apply(r.db.WithContext(ctx), s, "company_id").
		Preload("Company").
		Preload("QRCodes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) CountProducts(ctx context.Context, s scope.Scope) (int64, error) {
	var count int64
	err := scope.Apply(r.db.WithContext(ctx).Model(&model.Product{}), s, "company_id").Count(&count).Error
	return count, err
}

func (r *productRepo) CountCodes(ctx context.Context, s scope.Scope) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.QRCode{}).
		Joins("JOIN products ON products.id = qr_codes.product_id")
	err := scope.Apply(q, s, "products.company_id").Count(&count).Error
	return count, err
}

// IsUniqueViolation recognises unique-constraint failures from the translated
// GORM error, PostgreSQL (23505) and SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
