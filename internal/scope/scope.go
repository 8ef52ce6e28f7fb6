// Package scope is the access scoping layer. Every company-bound read or
// write receives a Scope built from server-validated claims and applies it at
// the repository boundary.
package scope

import (
	"errors"

	"go-productguard/internal/apperror"
	"go-productguard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPartnerWithoutCompany = errors.New("partner user has no company")

// Scope is implemented by Admin and Partner only.
type Scope interface {
	Role() model.Role
	ActorID() string
	// CompanyID reports the company restriction; false means global.
	CompanyID() (uuid.UUID, bool)
	// Narrow returns the scope to use for a read that asked for a company.
	Narrow(requested *uuid.UUID) Scope
	// OwningCompany returns the company a write acts on.
	OwningCompany(requested *uuid.UUID) (uuid.UUID, error)
	RequireAdmin() error

	sealed()
}

// Admin sees everything, or a single company once narrowed.
type Admin struct {
	Actor   string
	Company *uuid.UUID
}

func (a Admin) Role() model.Role { return model.RoleAdmin }
func (a Admin) ActorID() string  { return a.Actor }

func (a Admin) CompanyID() (uuid.UUID, bool) {
	if a.Company == nil {
		return uuid.Nil, false
	}
	return *a.Company, true
}

func (a Admin) Narrow(requested *uuid.UUID) Scope {
	if requested == nil {
		return a
	}
	id := *requested
	return Admin{Actor: a.Actor, Company: &id}
}

func (a Admin) OwningCompany(requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil {
		return *requested, nil
	}
	if a.Company != nil {
		return *a.Company, nil
	}
	return uuid.Nil, apperror.Validation("companyId is required for admin submissions")
}

func (a Admin) RequireAdmin() error { return nil }
func (a Admin) sealed()             {}

// Partner is pinned to its own company; requested companies never widen it.
type Partner struct {
	Actor   string
	Company uuid.UUID
}

func (p Partner) Role() model.Role { return model.RolePartner }
func (p Partner) ActorID() string  { return p.Actor }

func (p Partner) CompanyID() (uuid.UUID, bool) {
	return p.Company, true
}

func (p Partner) Narrow(*uuid.UUID) Scope {
	return p
}

func (p Partner) OwningCompany(requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil && *requested != p.Company {
		return uuid.Nil, apperror.Forbidden("partners may only act on their own company")
	}
	return p.Company, nil
}

func (p Partner) RequireAdmin() error {
	return apperror.Forbidden("administrator role required")
}

func (p Partner) sealed() {}

// FromClaims builds the variant for an authenticated user.
func FromClaims(role model.Role, userID string, companyID *uuid.UUID) (Scope, error) {
	switch role {
	case model.RoleAdmin:
		return Admin{Actor: userID}, nil
	case model.RolePartner:
		if companyID == nil || *companyID == uuid.Nil {
			return nil, ErrPartnerWithoutCompany
		}
		return Partner{Actor: userID, Company: *companyID}, nil
	}
	return nil, apperror.Forbidden("unknown role " + string(role))
}

// Apply restricts query to the scope's company on column.
func Apply(db *gorm.DB, s Scope, column string) *gorm.DB {
	if id, ok := s.CompanyID(); ok {
		return db.Where(column+" = ?", id)
	}
	return db
}

// Allows reports whether the scope may see records of companyID.
func Allows(s Scope, companyID uuid.UUID) bool {
	id, ok := s.CompanyID()
	return !ok || id == companyID
}
