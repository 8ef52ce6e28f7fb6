package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CodeStatus string

const (
	CodeActive  CodeStatus = "ACTIVE"
	CodeRevoked CodeStatus = "REVOKED"
)

func (s CodeStatus) Valid() bool {
	return s == CodeActive || s == CodeRevoked
}

// QRCode is one physical authentication unit. Code is unique across the whole
// registry and the product link never changes after creation.
type QRCode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	Code      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Status    CodeStatus `gorm:"type:varchar(10);not null;default:ACTIVE" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (QRCode) TableName() string {
	return "qr_codes"
}

func (q *QRCode) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Status == "" {
		q.Status = CodeActive
	}
	return
}
