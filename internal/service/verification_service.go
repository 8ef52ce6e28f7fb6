package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-productguard/internal/apperror"
	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgGenuine = "Genuine product"
	msgInvalid = "Invalid code"
)

// MaxScannedCodeBytes bounds a scanned code so it stays indexable in the
// ledger. Longer input is rejected before any lookup or write.
const MaxScannedCodeBytes = 2048

type VerifiedProduct struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	BatchNumber string `json:"batchNumber"`
}

type VerificationResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Product *VerifiedProduct `json:"product,omitempty"`
}

type VerificationService interface {
	Verify(ctx context.Context, code string, lat, lng *float64) (*VerificationResult, error)
}

type verificationService struct {
	productRepo repository.ProductRepository
	scanRepo    repository.ScanRepository
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewVerificationService(pRepo repository.ProductRepository, sRepo repository.ScanRepository, m *metrics.Metrics, log *zap.Logger) VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &verificationService{productRepo: pRepo, scanRepo: sRepo, metrics: m, log: log}
}

// Verify answers whether code is a live registered code and records the
// attempt in the scan ledger before returning. Codes are never consumed.
func (s *verificationService) Verify(ctx context.Context, code string, lat, lng *float64) (*VerificationResult, error) {
	if lat == nil || lng == nil {
		return nil, &apperror.LocationRequiredError{}
	}

	code = strings.TrimSpace(code)
	var details []string
	if code == "" {
		details = append(details, "code: must not be blank")
	}
	if len(code) > MaxScannedCodeBytes {
		details = append(details, fmt.Sprintf("code: must be at most %d bytes", MaxScannedCodeBytes))
	}
	if *lat < -90 || *lat > 90 {
		details = append(details, "latitude: must be within [-90, 90]")
	}
	if *lng < -180 || *lng > 180 {
		details = append(details, "longitude: must be within [-180, 180]")
	}
	if len(details) > 0 {
		return nil, apperror.Validation("invalid verification request", details...)
	}

	qr, err := s.productRepo.FindCode(ctx, code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup code: %w", err)
	}

	outcome := model.OutcomeFake
	result := &VerificationResult{Success: false, Message: msgInvalid}
	if qr != nil && qr.Status == model.CodeActive {
		outcome = model.OutcomeGenuine
		result = &VerificationResult{Success: true, Message: msgGenuine, Product: describe(qr.Product)}
	}

	event := &model.ScanEvent{Code: code, Outcome: outcome, Latitude: *lat, Longitude: *lng}
	if err := s.scanRepo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}

	s.metrics.ObserveVerification(string(outcome))
	s.log.Info("code verified",
		zap.String("code", code),
		zap.String("outcome", string(outcome)),
		zap.Float64("lat", *lat),
		zap.Float64("lng", *lng),
	)
	return result, nil
}

func describe(p *model.Product) *VerifiedProduct {
	if p == nil {
		return nil
	}
	out := &VerifiedProduct{Name: p.Name, BatchNumber: p.BatchNumber}
	if p.Company != nil {
		out.Company = p.Company.Name
	}
	return out
}
