// Package testutil provides an in-process database for package tests.
package testutil

import (
	"fmt"
	"testing"

	"go-productguard/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema. The
// pool is limited to one connection, so concurrent transactions queue the way
// row locks would serialise them on PostgreSQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedCompany inserts a company with the given name.
func SeedCompany(t testing.TB, db *gorm.DB, name string) *model.Company {
	t.Helper()
	company := &model.Company{Name: name}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company
}

// SeedCode inserts a product for company with one code in the given status.
func SeedCode(t testing.TB, db *gorm.DB, company *model.Company, sku, code string, status model.CodeStatus) *model.QRCode {
	t.Helper()
	product := &model.Product{CompanyID: company.ID, Name: "Product " + sku, SKU: sku, BatchNumber: "BATCH-" + sku}
	if err := db.Where(model.Product{CompanyID: company.ID, SKU: sku}).FirstOrCreate(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	qr := &model.QRCode{Code: code, ProductID: product.ID, Status: status}
	if err := db.Create(qr).Error; err != nil {
		t.Fatalf("seed code: %v", err)
	}
	return qr
}
