package service

import (
	"context"

	"go-productguard/internal/repository"
	"go-productguard/internal/scope"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type OverviewStats struct {
	TotalScans         int64 `json:"totalScans"`
	GenuineScans       int64 `json:"genuineScans"`
	FakeScans          int64 `json:"fakeScans"`
	RegisteredProducts int64 `json:"registeredProducts"`
	RegisteredCodes    int64 `json:"registeredCodes"`
}

// HotspotService aggregates the scan ledger for the dashboard map and cards.
type HotspotService interface {
	Hotspots(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]repository.HotspotPoint, error)
	OverviewStats(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) (*OverviewStats, error)
}

type hotspotService struct {
	scanRepo    repository.ScanRepository
	productRepo repository.ProductRepository
}

func NewHotspotService(sRepo repository.ScanRepository, pRepo repository.ProductRepository) HotspotService {
	return &hotspotService{scanRepo: sRepo, productRepo: pRepo}
}

func (s *hotspotService) Hotspots(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) ([]repository.HotspotPoint, error) {
	points, err := s.scanRepo.FakeLocations(ctx, sc.Narrow(requestedCompany))
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []repository.HotspotPoint{}
	}
	return points, nil
}

// OverviewStats derives totalScans from the same aggregate as its parts so
// the three scan figures always agree.
func (s *hotspotService) OverviewStats(ctx context.Context, sc scope.Scope, requestedCompany *uuid.UUID) (*OverviewStats, error) {
	narrowed := sc.Narrow(requestedCompany)

	var (
		outcomes *repository.OutcomeCounts
		products int64
		codes    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		outcomes, err = s.scanRepo.CountOutcomes(gctx, narrowed)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.productRepo.CountProducts(gctx, narrowed)
		return err
	})
	g.Go(func() (err error) {
		codes, err = s.productRepo.CountCodes(gctx, narrowed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &OverviewStats{
		TotalScans:         outcomes.Genuine + outcomes.Fake,
		GenuineScans:       outcomes.Genuine,
		FakeScans:          outcomes.Fake,
		RegisteredProducts: products,
		RegisteredCodes:    codes,
	}, nil
}
