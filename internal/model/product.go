package model

import "github.com/google/uuid"

// Product is unique per (company, sku); the same sku may exist in other companies.
type Product struct {
	BaseModel
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_company_sku" json:"company_id"`
	Company      *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	SKU          string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_company_sku" json:"sku"`
	BatchNumber  string    `gorm:"type:varchar(100)" json:"batch_number"`
	Description  string    `gorm:"type:text" json:"description"`
	QuantityHint int       `gorm:"default:0" json:"quantity_hint"`

	QRCodes []QRCode `json:"qr_codes,omitempty"`
}
