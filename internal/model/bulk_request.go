package model

import (
	"time"

	"github.com/google/uuid"
)

type BulkStatus string

const (
	BulkPending  BulkStatus = "PENDING"
	BulkApproved BulkStatus = "APPROVED"
	BulkRejected BulkStatus = "REJECTED"
)

type BulkAction string

const (
	ActionApprove BulkAction = "APPROVE"
	ActionReject  BulkAction = "REJECT"
)

// Target returns the terminal status an action moves a request to.
func (a BulkAction) Target() (BulkStatus, bool) {
	switch a {
	case ActionApprove:
		return BulkApproved, true
	case ActionReject:
		return BulkRejected, true
	}
	return "", false
}

// BulkRow is one validated upload line, kept verbatim until approval.
type BulkRow struct {
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	BatchNumber string `json:"batch_number"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

// BulkRequest is a pending batch submission. Its status leaves PENDING once
// and the record is then retained as an audit trail.
type BulkRequest struct {
	BaseModel
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Company       *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Filename      string     `gorm:"type:varchar(255)" json:"filename"`
	Rows          []BulkRow  `gorm:"type:text;serializer:json" json:"rows"`
	RowCount      int        `json:"row_count"`
	TotalQuantity int        `json:"total_quantity"`
	Status        BulkStatus `gorm:"type:varchar(10);not null;default:PENDING;index" json:"status"`
	DecidedBy     string     `gorm:"type:varchar(255)" json:"decided_by,omitempty"`
}

// BulkRequestResponse is the dashboard view of a request.
type BulkRequestResponse struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"companyId"`
	Company       *Company   `json:"company,omitempty"`
	Filename      string     `json:"filename"`
	Rows          []BulkRow  `json:"rows"`
	RowCount      int        `json:"rowCount"`
	TotalQuantity int        `json:"totalQuantity"`
	Status        BulkStatus `json:"status"`
	DecidedBy     string     `json:"decidedBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (r *BulkRequest) ToResponse() BulkRequestResponse {
	return BulkRequestResponse{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Company:       r.Company,
		Filename:      r.Filename,
		Rows:          r.Rows,
		RowCount:      r.RowCount,
		TotalQuantity: r.TotalQuantity,
		Status:        r.Status,
		DecidedBy:     r.DecidedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
