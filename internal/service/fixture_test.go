package service_test

import (
	"sync"
	"testing"

	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/internal/service"
	"go-productguard/internal/testutil"
	"go-productguard/pkg/jwt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type recordedEvent struct {
	name      string
	companyID uuid.UUID
	payload   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Publish(event string, companyID uuid.UUID, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{event, companyID, payload})
}

func (n *recordingNotifier) companies() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uuid.UUID, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.companyID)
	}
	return out
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.name)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	products repository.ProductRepository
	scans    repository.ScanRepository
	bulk     repository.BulkRequestRepository
	company  repository.CompanyRepository
	users    repository.UserRepository
	notifier *recordingNotifier

	acme   *model.Company
	globex *model.Company
}

func newFixture(t *testing.T, codes repository.CodeConfig) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		products: repository.NewProductRepo(db, codes),
		scans:    repository.NewScanRepo(db),
		bulk:     repository.NewBulkRequestRepo(db),
		company:  repository.NewCompanyRepo(db),
		users:    repository.NewUserRepo(db),
		notifier: &recordingNotifier{},
	}
	f.acme = testutil.SeedCompany(t, db, "Acme")
	f.globex = testutil.SeedCompany(t, db, "Globex")
	return f
}

func (f *fixture) bulkService(limits service.Limits) service.BulkService {
	return service.NewBulkService(service.BulkDeps{
		DB:          f.db,
		BulkRepo:    f.bulk,
		ProductRepo: f.products,
		CompanyRepo: f.company,
		Notifier:    f.notifier,
		Limits:      limits,
	})
}

func (f *fixture) registryService() service.RegistryService {
	return service.NewRegistryService(service.RegistryDeps{
		DB:          f.db,
		ProductRepo: f.products,
		CompanyRepo: f.company,
		UserRepo:    f.users,
		Notifier:    f.notifier,
	})
}

func (f *fixture) authService() service.AuthService {
	return service.NewAuthService(f.users, jwt.NewManager("test-secret", 1), nil)
}

func (f *fixture) countProducts(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Product{}).Count(&n).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	return n
}

func (f *fixture) countCodes(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.QRCode{}).Count(&n).Error; err != nil {
		t.Fatalf("count codes: %v", err)
	}
	return n
}

func (f *fixture) countScans(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.ScanEvent{}).Count(&n).Error; err != nil {
		t.Fatalf("count scans: %v", err)
	}
	return n
}

func ptr[T any](v T) *T {
	return &v
}

func actor() string {
	return uuid.NewString()
}
