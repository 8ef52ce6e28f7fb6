package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-productguard/internal/apperror"
	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/internal/scope"
	"go-productguard/pkg/metrics"
	"go-productguard/pkg/rowreader"
	"go-productguard/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateProductRequest is the manual add form. Dashboard forms post the
// quantity as text, so it is validated the same way as an uploaded cell.
type CreateProductRequest struct {
	CompanyID   *uuid.UUID   `json:"companyId"`
	Name        string       `json:"name"`
	SKU         string       `json:"sku"`
	BatchNumber string       `json:"batchNumber"`
	Quantity    QuantityText `json:"quantity"`
	Description string       `json:"description"`
}

// QuantityText holds a quantity sent either as a JSON number or as a string.
type QuantityText string

func (q *QuantityText) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*q = QuantityText(text)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = QuantityText(n.String())
	return nil
}

type CreatedProduct struct {
	Product *model.Product `json:"product"`
	Codes   []model.QRCode `json:"codes"`
}

type CreateUserRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8"`
	FullName  string     `json:"full_name" validate:"notblank"`
	Role      model.Role `json:"role" validate:"required,oneof=ADMIN PARTNER"`
	CompanyID *uuid.UUID `json:"companyId"`
}

type CreateCompanyRequest struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

// RegistryService covers manual product entry and catalogue administration.
type RegistryService interface {
	CreateProduct(ctx context.Context, sc scope.Scope, req CreateProductRequest) (*CreatedProduct, error)
	ListProducts(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]model.Product, error)
	SetCodeStatus(ctx context.Context, sc scope.Scope, code string, status model.CodeStatus) (*model.QRCode, error)
	ListCompanies(ctx context.Context, sc scope.Scope) ([]model.Company, error)
	CreateCompany(ctx context.Context, sc scope.Scope, req CreateCompanyRequest) (*model.Company, error)
	CreateUser(ctx context.Context, sc scope.Scope, req CreateUserRequest) (*model.User, error)
}

type registryService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	companyRepo repository.CompanyRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	metrics     *metrics.Metrics
	limits      Limits
	log         *zap.Logger
}

type RegistryDeps struct {
	DB          *gorm.DB
	ProductRepo repository.ProductRepository
	CompanyRepo repository.CompanyRepository
	UserRepo    repository.UserRepository
	Notifier    Notifier
	Metrics     *metrics.Metrics
	Limits      Limits
	Log         *zap.Logger
}

func NewRegistryService(d RegistryDeps) RegistryService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &registryService{
		db:          d.DB,
		productRepo: d.ProductRepo,
		companyRepo: d.CompanyRepo,
		userRepo:    d.UserRepo,
		notifier:    notifierOrNop(d.Notifier),
		metrics:     d.Metrics,
		limits:      d.Limits.withDefaults(),
		log:         d.Log,
	}
}

// CreateProduct registers a product directly, without the approval queue.
// It runs the same find-or-create and issuing path as an approved one-row
// bulk request.
func (s *registryService) CreateProduct(ctx context.Context, sc scope.Scope, req CreateProductRequest) (*CreatedProduct, error) {
	companyID, err := sc.OwningCompany(req.CompanyID)
	if err != nil {
		return nil, err
	}

	row, problems := validateRow(rowreader.RawRow{
		Line:        1,
		ProductName: req.Name,
		SKU:         req.SKU,
		BatchNumber: req.BatchNumber,
		Quantity:    string(req.Quantity),
		Description: req.Description,
	}, s.limits.MaxQuantity)
	if len(problems) > 0 {
		return nil, apperror.Validation("invalid product", problems...)
	}

	if _, err := s.companyRepo.FindByID(ctx, companyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("company", companyID.String())
		}
		return nil, err
	}

	actor := sc.ActorID()
	var out CreatedProduct
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindOrCreate(tx, companyID, row, actor)
		if err != nil {
			return err
		}
		codes, err := s.productRepo.IssueCodes(tx, product.ID, row.Quantity)
		if err != nil {
			return err
		}
		out = CreatedProduct{Product: product, Codes: codes}
		return nil
	})
	if errors.Is(err, repository.ErrCodeSpaceExhausted) {
		return nil, apperror.Conflict(apperror.CodeSpaceExhausted, "could not allocate unique codes")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCodesIssued("manual", len(out.Codes))
	s.log.Info("product registered",
		zap.String("product_id", out.Product.ID.String()),
		zap.String("sku", out.Product.SKU),
		zap.Int("codes_issued", len(out.Codes)),
		zap.String("actor", actor),
	)
	return &out, nil
}

func (s *registryService) ListProducts(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx, sc.Narrow(requestedCompany))
}

// SetCodeStatus revokes or reactivates a code. Partners may only touch codes
// of their own company.
func (s *registryService) SetCodeStatus(ctx context.Context, sc scope.Scope, code string, status model.CodeStatus) (*model.QRCode, error) {
	if !status.Valid() {
		return nil, apperror.Validation("status must be ACTIVE or REVOKED", "status: "+string(status))
	}

	qr, err := s.productRepo.FindCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("qr code", code)
	}
	if err != nil {
		return nil, err
	}
	if qr.Product == nil || !scope.Allows(sc, qr.Product.CompanyID) {
		return nil, apperror.Forbidden("code belongs to another company")
	}

	if qr.Status != status {
		if err := s.productRepo.UpdateCodeStatus(ctx, qr.ID, status); err != nil {
			return nil, fmt.Errorf("update code status: %w", err)
		}
		qr.Status = status
		s.log.Info("code status changed",
			zap.String("code", qr.Code),
			zap.String("status", string(status)),
			zap.String("actor", sc.ActorID()),
		)
		s.notifier.Publish(EventCodeStatus, qr.Product.CompanyID, map[string]interface{}{
			"code":       qr.Code,
			"status":     status,
			"company_id": qr.Product.CompanyID,
		})
	}
	return qr, nil
}

func (s *registryService) ListCompanies(ctx context.Context, sc scope.Scope) ([]model.Company, error) {
	return s.companyRepo.FindAll(ctx, sc)
}

func (s *registryService) CreateCompany(ctx context.Context, sc scope.Scope, req CreateCompanyRequest) (*model.Company, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed("invalid company", errs)
	}

	company := &model.Company{Name: strings.TrimSpace(req.Name)}
	company.CreatedBy = sc.ActorID()
	company.UpdatedBy = sc.ActorID()
	if err := s.companyRepo.Create(ctx, company); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Conflict(apperror.CodeDuplicateCompany, "company name already exists")
		}
		return nil, err
	}
	return company, nil
}

func (s *registryService) CreateUser(ctx context.Context, sc scope.Scope, req CreateUserRequest) (*model.User, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationFailed("invalid user", errs)
	}

	user := &model.User{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Role:     req.Role,
		IsActive: true,
	}
	if req.Role == model.RolePartner {
		if req.CompanyID == nil {
			return nil, apperror.Validation("invalid user", "companyId: is required for partners")
		}
		if _, err := s.companyRepo.FindByID(ctx, *req.CompanyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("company", req.CompanyID.String())
			}
			return nil, err
		}
		user.CompanyID = req.CompanyID
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.CreatedBy = sc.ActorID()
	user.UpdatedBy = sc.ActorID()

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.Conflict(apperror.CodeDuplicateUserEmail, "email already registered")
		}
		return nil, err
	}
	return user, nil
}

func validationFailed(message string, errs []*validator.ErrorResponse) *apperror.ValidationError {
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, e.String())
	}
	return apperror.Validation(message, details...)
}
