package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"go-productguard/internal/apperror"
	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/internal/scope"
	"go-productguard/internal/service"
	"go-productguard/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductBypassesQueue(t *testing.T) {
	f := newFixture(t, repository.CodeConfig{})
	svc := f.registryService()
	ctx := context.Background()
	partner := scope.Partner{Actor: actor(), Company: f.acme.ID}

	out, err := svc.CreateProduct(ctx, partner, service.CreateProductRequest{
		Name:        "Serum",
		SKU:         "SR-1",
		BatchNumber: "2026-10",
		Quantity:    "3",
	})
	require.NoError(t, err)
	assert.Equal(t, f.acme.ID, out.Product.CompanyID)
	assert.Len(t, out.Codes, 3)

	again, err := svc.CreateProduct(ctx, partner, service.CreateProductRequest{
		Name:        "Serum",
		SKU:         "SR-1",
		BatchNumber: "2026-11",
		Quantity:    "2",
	})
	require.NoError(t, err)
	assert.Equal(t, out.Product.ID, again.Product.ID)
	assert.EqualValues(t, 1, f.countProducts(t))
	assert.EqualValues(t, 5, f.countCodes(t))

	var pending int64
	require.NoError(t, f.db.Model(&model.BulkRequest{}).Count(&pending).Error)
	assert.Zero(t, pending)
}

func TestCreateProductRequestDecodesFormPayload(t *testing.T) {
	var req service.CreateProductRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Widget","sku":"W1","batchNumber":"B1","description":"d","quantity":"3"}`), &req))
	assert.Equal(t, "Widget", req.Name)
	assert.Equal(t, "B1", req.BatchNumber)
	assert.Equal(t, service.QuantityText("3"), req.Quantity)

	require.NoError(t, json.Unmarshal([]byte(`{"quantity":4}`), &req))
	assert.Equal(t, service.QuantityText("4"), req.Quantity)

	assert.Error(t, json.Unmarshal([]byte(`{"quantity":true}`), &req))
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t, repository.CodeConfig{})
	svc := f.registryService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, scope.Admin{Actor: actor()}, service.CreateProductRequest{
		CompanyID:   &f.acme.ID,
		Name:        "Serum",
		SKU:         "",
		BatchNumber: "B",
		Quantity:    "0",
	})
	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Details, 2)

	_, err = svc.CreateProduct(ctx, scope.Partner{Actor: actor(), Company: f.acme.ID}, service.CreateProductRequest{
		CompanyID:   &f.globex.ID,
		Name:        "Serum",
		SKU:         "S",
		BatchNumber: "B",
		Quantity:    "1",
	})
	var authErr *apperror.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
	assert.Zero(t, f.countProducts(t))
}

func TestSetCodeStatus(t *testing.T) {
	f := newFixture(t, repository.CodeConfig{})
	svc := f.registryService()
	ctx := context.Background()
	testutil.SeedCode(t, f.db, f.acme, "A", "ACME-1", model.CodeActive)

	_, err := svc.SetCodeStatus(ctx, scope.Partner{Actor: actor(), Company: f.globex.ID}, "ACME-1", model.CodeRevoked)
	var authErr *apperror.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	qr, err := svc.SetCodeStatus(ctx, scope.Partner{Actor: actor(), Company: f.acme.ID}, "ACME-1", model.CodeRevoked)
	require.NoError(t, err)
	assert.Equal(t, model.CodeRevoked, qr.Status)

	stored, err := f.products.FindCode(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, model.CodeRevoked, stored.Status)
	assert.Contains(t, f.notifier.names(), service.EventCodeStatus)
	assert.Equal(t, []uuid.UUID{f.acme.ID}, f.notifier.companies())

	_, err = svc.SetCodeStatus(ctx, scope.Admin{Actor: actor()}, "missing", model.CodeActive)
	var nfErr *apperror.NotFoundError
	assert.ErrorAs(t, err, &nfErr)

	_, err = svc.SetCodeStatus(ctx, scope.Admin{Actor: actor()}, "ACME-1", model.CodeStatus("LOST"))
	var valErr *apperror.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestCompanyAdministration(t *testing.T) {
	f := newFixture(t, repository.CodeConfig{})
	svc := f.registryService()
	ctx := context.Background()
	admin := scope.Admin{Actor: actor()}

	_, err := svc.CreateCompany(ctx, scope.Partner{Actor: actor(), Company: f.acme.ID}, service.CreateCompanyRequest{Name: "Initech"})
	var authErr *apperror.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	company, err := svc.CreateCompany(ctx, admin, service.CreateCompanyRequest{Name: " Initech "})
	require.NoError(t, err)
	assert.Equal(t, "Initech", company.Name)

	_, err = svc.CreateCompany(ctx, admin, service.CreateCompanyRequest{Name: "Initech"})
	var conflict *apperror.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, apperror.CodeDuplicateCompany, conflict.Code)

	all, err := svc.ListCompanies(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := svc.ListCompanies(ctx, scope.Partner{Actor: actor(), Company: f.acme.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Acme", own[0].Name)
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t, repository.CodeConfig{})
	svc := f.registryService()
	ctx := context.Background()
	admin := scope.Admin{Actor: actor()}

	_, err := svc.CreateUser(ctx, admin, service.CreateUserRequest{
		Email: "p@acme.test", Password: "password1", FullName: "P", Role: model.RolePartner,
	})
	var valErr *apperror.ValidationError
	assert.ErrorAs(t, err, &valErr)

	missing := uuid.New()
	_, err = svc.CreateUser(ctx, admin, service.CreateUserRequest{
		Email: "p@acme.test", Password: "password1", FullName: "P", Role: model.RolePartner, CompanyID: &missing,
	})
	var nfErr *apperror.NotFoundError
	assert.ErrorAs(t, err, &nfErr)

	user, err := svc.CreateUser(ctx, admin, service.CreateUserRequest{
		Email: "P@Acme.test", Password: "password1", FullName: "Partner", Role: model.RolePartner, CompanyID: &f.acme.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "p@acme.test", user.Email)
	assert.True(t, user.CheckPassword("password1"))

	_, err = svc.CreateUser(ctx, admin, service.CreateUserRequest{
		Email: "p@acme.test", Password: "password1", FullName: "Again", Role: model.RoleAdmin,
	})
	var conflict *apperror.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, apperror.CodeDuplicateUserEmail, conflict.Code)

	_, err = svc.CreateUser(ctx, scope.Partner{Actor: actor(), Company: f.acme.ID}, service.CreateUserRequest{
		Email: "x@acme.test", Password: "password1", FullName: "X", Role: model.RoleAdmin,
	})
	var authErr *apperror.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}
