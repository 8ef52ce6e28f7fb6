package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-productguard/internal/apperror"
	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/internal/scope"
	"go-productguard/pkg/lock"
	"go-productguard/pkg/metrics"
	"go-productguard/pkg/rowreader"
	"go-productguard/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Limits bounds a single submission.
type Limits struct {
	MaxQuantity int
	MaxRows     int
}

func (l Limits) withDefaults() Limits {
	if l.MaxQuantity <= 0 {
		l.MaxQuantity = 10000
	}
	if l.MaxRows <= 0 {
		l.MaxRows = 5000
	}
	return l
}

type BulkService interface {
	Submit(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID, filename string, rows []rowreader.RawRow) (uuid.UUID, error)
	Decide(ctx context.Context, sc scope.Scope, id uuid.UUID, action model.BulkAction) (*model.BulkRequest, error)
	List(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]model.BulkRequest, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*model.BulkRequest, error)
}

type bulkService struct {
	db          *gorm.DB
	bulkRepo    repository.BulkRequestRepository
	productRepo repository.ProductRepository
	companyRepo repository.CompanyRepository
	locker      *lock.Locker
	notifier    Notifier
	metrics     *metrics.Metrics
	limits      Limits
	log         *zap.Logger
}

type BulkDeps struct {
	DB          *gorm.DB
	BulkRepo    repository.BulkRequestRepository
	ProductRepo repository.ProductRepository
	CompanyRepo repository.CompanyRepository
	Locker      *lock.Locker
	Notifier    Notifier
	Metrics     *metrics.Metrics
	Limits      Limits
	Log         *zap.Logger
}

func NewBulkService(d BulkDeps) BulkService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &bulkService{
		db:          d.DB,
		bulkRepo:    d.BulkRepo,
		productRepo: d.ProductRepo,
		companyRepo: d.CompanyRepo,
		locker:      d.Locker,
		notifier:    notifierOrNop(d.Notifier),
		metrics:     d.Metrics,
		limits:      d.Limits.withDefaults(),
		log:         d.Log,
	}
}

// Submit validates every row and queues the batch as PENDING. Nothing is
// written when any row fails.
func (s *bulkService) Submit(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID, filename string, rows []rowreader.RawRow) (uuid.UUID, error) {
	companyID, err := sc.OwningCompany(requestedCompany)
	if err != nil {
		return uuid.Nil, err
	}

	if len(rows) == 0 {
		return uuid.Nil, apperror.Validation("upload contains no data rows")
	}
	if len(rows) > s.limits.MaxRows {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("upload has %d rows, the limit is %d", len(rows), s.limits.MaxRows))
	}

	accepted := make([]model.BulkRow, 0, len(rows))
	var details []string
	total := 0
	for _, raw := range rows {
		row, problems := validateRow(raw, s.limits.MaxQuantity)
		for _, p := range problems {
			details = append(details, fmt.Sprintf("row %d: %s", raw.Line, p))
		}
		if len(problems) == 0 {
			accepted = append(accepted, row)
			total += row.Quantity
		}
	}
	if len(details) > 0 {
		return uuid.Nil, apperror.Validation("upload rejected", details...)
	}

	if err := s.ensureCompany(ctx, companyID); err != nil {
		return uuid.Nil, err
	}

	req := &model.BulkRequest{
		CompanyID:     companyID,
		Filename:      filename,
		Rows:          accepted,
		RowCount:      len(accepted),
		TotalQuantity: total,
		Status:        model.BulkPending,
	}
	req.CreatedBy = sc.ActorID()
	req.UpdatedBy = sc.ActorID()
	if err := s.bulkRepo.Create(ctx, req); err != nil {
		return uuid.Nil, fmt.Errorf("store bulk request: %w", err)
	}

	s.metrics.ObserveSubmission()
	s.log.Info("bulk request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.Int("rows", req.RowCount),
		zap.Int("quantity", total),
	)
	s.notifier.Publish(EventBulkSubmitted, req.CompanyID, summarize(req))
	return req.ID, nil
}

// Decide moves a PENDING request to its terminal state. Approval creates the
// products and codes in the same transaction as the state change, so either
// everything commits or the request stays PENDING.
func (s *bulkService) Decide(ctx context.Context, sc scope.Scope, id uuid.UUID, action model.BulkAction) (*model.BulkRequest, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}
	target, ok := action.Target()
	if !ok {
		return nil, apperror.Validation("action must be APPROVE or REJECT", "action: "+string(action))
	}

	release, err := s.locker.Obtain(ctx, "lock:bulk-request:"+id.String())
	if err != nil {
		s.log.Warn("decision lock unavailable, relying on database",
			zap.String("request_id", id.String()), zap.Error(err))
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.log.Warn("decision lock release failed", zap.String("request_id", id.String()), zap.Error(err))
		}
	}()

	actor := sc.ActorID()
	var req model.BulkRequest
	issued := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.bulkRepo.Transition(tx, id, target, actor); err != nil {
			return err
		}
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		if target == model.BulkRejected {
			return nil
		}
		n, err := materialise(tx, s.productRepo, req.CompanyID, req.Rows, actor)
		issued = n
		return err
	})
	if err != nil {
		result, mapped := decisionError(id, err)
		s.metrics.ObserveDecision(string(action), result)
		s.log.Warn("bulk decision failed",
			zap.String("request_id", id.String()),
			zap.String("action", string(action)),
			zap.String("result", result),
			zap.Error(err),
		)
		return nil, mapped
	}

	s.metrics.ObserveDecision(string(action), "ok")
	s.metrics.ObserveCodesIssued("bulk", issued)
	s.log.Info("bulk request decided",
		zap.String("request_id", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("decided_by", actor),
		zap.Int("codes_issued", issued),
	)
	s.notifier.Publish(EventBulkDecided, req.CompanyID, summarize(&req))
	return &req, nil
}

func (s *bulkService) List(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]model.BulkRequest, error) {
	return s.bulkRepo.FindAll(ctx, sc.Narrow(requestedCompany))
}

func (s *bulkService) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*model.BulkRequest, error) {
	req, err := s.bulkRepo.FindByID(ctx, sc, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("bulk request", id.String())
	}
	return req, err
}

func (s *bulkService) ensureCompany(ctx context.Context, id uuid.UUID) error {
	if _, err := s.companyRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("company", id.String())
		}
		return err
	}
	return nil
}

// materialise finds or creates each row's product and issues its codes on tx.
func materialise(tx *gorm.DB, products repository.ProductRepository, companyID uuid.UUID, rows []model.BulkRow, actor string) (int, error) {
	issued := 0
	for _, row := range rows {
		product, err := products.FindOrCreate(tx, companyID, row, actor)
		if err != nil {
			return issued, fmt.Errorf("product %s: %w", row.SKU, err)
		}
		codes, err := products.IssueCodes(tx, product.ID, row.Quantity)
		if err != nil {
			return issued, fmt.Errorf("codes for %s: %w", row.SKU, err)
		}
		issued += len(codes)
	}
	return issued, nil
}

// validateRow checks one raw line and converts it. Problems are reported as
// "field: reason" without the row prefix.
func validateRow(raw rowreader.RawRow, maxQuantity int) (model.BulkRow, []string) {
	var problems []string
	for _, e := range validator.ValidateStruct(raw) {
		problems = append(problems, e.FailedField+": "+rowReason(e.Tag))
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(raw.Quantity))
	if err == nil && quantity > 0 && !validator.ValidateVar(raw.Quantity, fmt.Sprintf("positive_int=%d", maxQuantity)) {
		problems = append(problems, fmt.Sprintf("quantity: must not exceed %d", maxQuantity))
	}
	if len(problems) > 0 {
		return model.BulkRow{}, problems
	}

	return model.BulkRow{
		ProductName: strings.TrimSpace(raw.ProductName),
		SKU:         strings.TrimSpace(raw.SKU),
		BatchNumber: strings.TrimSpace(raw.BatchNumber),
		Quantity:    quantity,
		Description: strings.TrimSpace(raw.Description),
	}, nil
}

func rowReason(tag string) string {
	switch tag {
	case "notblank":
		return "is required"
	case "positive_int":
		return "must be a positive integer"
	}
	return "failed " + tag
}

// decisionError maps repository failures onto the error taxonomy and a
// metrics result label.
func decisionError(id uuid.UUID, err error) (string, error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found", apperror.NotFound("bulk request", id.String())
	case errors.Is(err, repository.ErrNotPending):
		return "already_processed", apperror.Conflict(apperror.CodeAlreadyProcessed, "bulk request was already decided")
	case errors.Is(err, repository.ErrCodeSpaceExhausted):
		return "code_space_exhausted", apperror.Conflict(apperror.CodeSpaceExhausted, "could not allocate unique codes, request left pending")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout", err
	}
	return "error", err
}

type bulkSummary struct {
	ID            uuid.UUID        `json:"id"`
	CompanyID     uuid.UUID        `json:"company_id"`
	Filename      string           `json:"filename"`
	RowCount      int              `json:"row_count"`
	TotalQuantity int              `json:"total_quantity"`
	Status        model.BulkStatus `json:"status"`
	DecidedBy     string           `json:"decided_by,omitempty"`
}

// summarize strips rows from a request for event payloads.
func summarize(req *model.BulkRequest) bulkSummary {
	return bulkSummary{
		ID:            req.ID,
		CompanyID:     req.CompanyID,
		Filename:      req.Filename,
		RowCount:      req.RowCount,
		TotalQuantity: req.TotalQuantity,
		Status:        req.Status,
		DecidedBy:     req.DecidedBy,
	}
}
