package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScanOutcome string

const (
	OutcomeGenuine ScanOutcome = "GENUINE"
	OutcomeFake    ScanOutcome = "FAKE"
)

// ScanEvent is one verification attempt. Rows are append-only: the ledger
// exposes no update or delete path. Code is stored as scanned, so it may not
// exist in the registry. The column is text so any accepted scan fits.
type ScanEvent struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key;" json:"id"`
	Code      string      `gorm:"type:text;not null;index" json:"code"`
	Outcome   ScanOutcome `gorm:"type:varchar(10);not null;index" json:"outcome"`
	Latitude  float64     `gorm:"not null" json:"latitude"`
	Longitude float64     `gorm:"not null" json:"longitude"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (e *ScanEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
