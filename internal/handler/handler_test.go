package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-productguard/internal/handler"
	"go-productguard/internal/model"
	"go-productguard/internal/repository"
	"go-productguard/internal/scope"
	"go-productguard/internal/service"
	"go-productguard/internal/testutil"
	"go-productguard/internal/ws"
	"go-productguard/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type HandlerSuite struct {
	suite.Suite
	app          *fiber.App
	acme, globex *model.Company
	adminToken   string
	partnerToken string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	t := s.T()
	db := testutil.NewDB(t)
	ctx := context.Background()

	products := repository.NewProductRepo(db, repository.CodeConfig{})
	scans := repository.NewScanRepo(db)
	companies := repository.NewCompanyRepo(db)
	users := repository.NewUserRepo(db)
	bulk := repository.NewBulkRequestRepo(db)

	auth := service.NewAuthService(users, jwt.NewManager("handler-secret", 1), nil)
	registry := service.NewRegistryService(service.RegistryDeps{DB: db, ProductRepo: products, CompanyRepo: companies, UserRepo: users})
	services := handler.Services{
		Auth:         auth,
		Verification: service.NewVerificationService(products, scans, nil, nil),
		Bulk:         service.NewBulkService(service.BulkDeps{DB: db, BulkRepo: bulk, ProductRepo: products, CompanyRepo: companies}),
		Registry:     registry,
		Hotspots:     service.NewHotspotService(scans, products),
		Hub:          ws.NewHub(nil),
	}

	s.app = fiber.New()
	handler.Register(s.app, services)

	s.acme = testutil.SeedCompany(t, db, "Acme")
	s.globex = testutil.SeedCompany(t, db, "Globex")
	testutil.SeedCode(t, db, s.acme, "A", "ACME-LIVE", model.CodeActive)
	testutil.SeedCode(t, db, s.globex, "Z", "GLOBEX-LIVE", model.CodeActive)

	require.NoError(t, auth.SeedAdmin(ctx, "admin@example.com", "admin-pass"))
	_, err := registry.CreateUser(ctx, scope.Admin{Actor: "test"}, service.CreateUserRequest{
		Email: "partner@acme.test", Password: "partner-pass", FullName: "Acme Partner",
		Role: model.RolePartner, CompanyID: &s.acme.ID,
	})
	require.NoError(t, err)

	s.adminToken = s.login("admin@example.com", "admin-pass")
	s.partnerToken = s.login("partner@acme.test", "partner-pass")
}

func (s *HandlerSuite) login(email, password string) string {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(200, resp.StatusCode, "%v", body)
	return body["token"].(string)
}

func (s *HandlerSuite) send(req *http.Request, token string) (*http.Response, map[string]interface{}) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *HandlerSuite) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *HandlerSuite) upload(token, filename, content, companyID string) (*http.Response, map[string]interface{}) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	s.Require().NoError(err)
	_, err = part.Write([]byte(content))
	s.Require().NoError(err)
	if companyID != "" {
		s.Require().NoError(w.WriteField("companyId", companyID))
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bulk/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(req, token)
}

func (s *HandlerSuite) TestVerify() {
	resp, body := s.do(http.MethodPost, "/api/v1/scans/verify", "", map[string]interface{}{"code": "ACME-LIVE"})
	s.Equal(400, resp.StatusCode)
	s.Equal("LOCATION_REQUIRED", body["code"])

	resp, body = s.do(http.MethodPost, "/api/v1/scans/verify", "", map[string]interface{}{
		"code": "ACME-LIVE", "latitude": 1.0, "longitude": 2.0,
	})
	s.Equal(200, resp.StatusCode)
	s.Equal(true, body["success"])
	s.Equal("Acme", body["product"].(map[string]interface{})["company"])

	resp, body = s.do(http.MethodPost, "/api/v1/scans/verify", "", map[string]interface{}{
		"code": "FORGED", "latitude": 0, "longitude": 0,
	})
	s.Equal(200, resp.StatusCode)
	s.Equal(false, body["success"])
	s.Equal("Invalid code", body["message"])

	resp, body = s.do(http.MethodPost, "/api/v1/scans/verify", "", map[string]interface{}{
		"code": "ACME-LIVE", "latitude": 120, "longitude": 0,
	})
	s.Equal(400, resp.StatusCode)
	s.Equal("VALIDATION_ERROR", body["code"])
}

func (s *HandlerSuite) TestProtectedRoutesNeedToken() {
	resp, _ := s.do(http.MethodGet, "/api/v1/hotspots", "", nil)
	s.Equal(401, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/hotspots", "garbage", nil)
	s.Equal(401, resp.StatusCode)
}

func (s *HandlerSuite) TestBulkUploadAndDecision() {
	csv := "Product_Name,SKU,Batch_Number,Quantity\nSerum,SR-1,B1,3\nCream,CR-1,B1,2\n"

	resp, body := s.upload(s.partnerToken, "stock.csv", "sku,quantity\nA,1\n", "")
	s.Equal(400, resp.StatusCode)
	s.ElementsMatch([]interface{}{"product_name", "batch_number"}, body["missingColumns"])

	resp, _ = s.upload(s.partnerToken, "stock.txt", csv, "")
	s.Equal(400, resp.StatusCode)

	resp, body = s.upload(s.partnerToken, "stock.csv", csv, s.globex.ID.String())
	s.Equal(403, resp.StatusCode)
	s.Equal("FORBIDDEN", body["code"])

	resp, body = s.upload(s.partnerToken, "stock.csv", csv, "")
	s.Require().Equal(201, resp.StatusCode, "%v", body)
	id := body["requestId"].(string)
	s.Equal("Upload queued for approval", body["message"])

	resp, body = s.do(http.MethodGet, "/api/v1/bulk-requests/"+id, s.partnerToken, nil)
	s.Require().Equal(200, resp.StatusCode)
	s.Equal("PENDING", body["status"])
	s.Equal(s.acme.ID.String(), body["companyId"])
	s.Contains(body, "createdAt")
	s.Contains(body, "updatedAt")
	s.NotContains(body, "created_at")

	resp, _ = s.do(http.MethodPost, "/api/v1/bulk-requests/"+id+"/decision", s.partnerToken, map[string]string{"action": "APPROVE"})
	s.Equal(403, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/v1/bulk-requests/"+id+"/decision", s.adminToken, map[string]string{"action": "approve"})
	s.Require().Equal(200, resp.StatusCode, "%v", body)
	s.Equal("APPROVED", body["status"])
	s.NotEmpty(body["updatedAt"])

	resp, body = s.do(http.MethodPost, "/api/v1/bulk-requests/"+id+"/decision", s.adminToken, map[string]string{"action": "REJECT"})
	s.Equal(409, resp.StatusCode)
	s.Equal("ALREADY_PROCESSED", body["code"])

	resp, body = s.do(http.MethodGet, "/api/v1/overview-stats", s.partnerToken, nil)
	s.Require().Equal(200, resp.StatusCode)
	s.EqualValues(3, body["registeredProducts"])
	s.EqualValues(6, body["registeredCodes"])

	resp, _ = s.do(http.MethodPost, "/api/v1/bulk-requests/not-a-uuid/decision", s.adminToken, map[string]string{"action": "REJECT"})
	s.Equal(400, resp.StatusCode)
}

func (s *HandlerSuite) TestPartnerCannotWidenStats() {
	for _, req := range []map[string]interface{}{
		{"code": "GLOBEX-LIVE", "latitude": 1, "longitude": 1},
		{"code": "ACME-LIVE", "latitude": 1, "longitude": 1},
		{"code": "ACME-LIVE", "latitude": 1, "longitude": 1},
	} {
		resp, _ := s.do(http.MethodPost, "/api/v1/scans/verify", "", req)
		s.Require().Equal(200, resp.StatusCode)
	}

	resp, body := s.do(http.MethodGet, "/api/v1/overview-stats?companyId="+s.globex.ID.String(), s.partnerToken, nil)
	s.Require().Equal(200, resp.StatusCode)
	s.EqualValues(2, body["genuineScans"])
	s.EqualValues(2, body["totalScans"])

	resp, body = s.do(http.MethodGet, "/api/v1/overview-stats?companyId="+s.globex.ID.String(), s.adminToken, nil)
	s.Require().Equal(200, resp.StatusCode)
	s.EqualValues(1, body["genuineScans"])

	resp, _ = s.do(http.MethodGet, "/api/v1/overview-stats?companyId=nope", s.adminToken, nil)
	s.Equal(400, resp.StatusCode)
}

func (s *HandlerSuite) TestAdminOnlyRoutes() {
	resp, _ := s.do(http.MethodPost, "/api/v1/companies", s.partnerToken, map[string]string{"name": "Initech"})
	s.Equal(403, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/api/v1/companies", s.adminToken, map[string]string{"name": "Initech"})
	s.Equal(201, resp.StatusCode)
	s.Equal("Initech", body["name"])

	resp, body = s.do(http.MethodPost, "/api/v1/companies", s.adminToken, map[string]string{"name": "Initech"})
	s.Equal(409, resp.StatusCode)
	s.Equal("DUPLICATE_COMPANY", body["code"])
}

func (s *HandlerSuite) TestCodeRevocation() {
	resp, _ := s.do(http.MethodPatch, "/api/v1/qrcodes/GLOBEX-LIVE/status", s.partnerToken, map[string]string{"status": "REVOKED"})
	s.Equal(403, resp.StatusCode)

	resp, body := s.do(http.MethodPatch, "/api/v1/qrcodes/ACME-LIVE/status", s.partnerToken, map[string]string{"status": "revoked"})
	s.Require().Equal(200, resp.StatusCode)
	s.Equal("REVOKED", body["status"])

	resp, body = s.do(http.MethodPost, "/api/v1/scans/verify", "", map[string]interface{}{
		"code": "ACME-LIVE", "latitude": 1, "longitude": 1,
	})
	s.Equal(200, resp.StatusCode)
	s.Equal(false, body["success"])

	resp, _ = s.do(http.MethodPatch, "/api/v1/qrcodes/NOPE/status", s.adminToken, map[string]string{"status": "ACTIVE"})
	s.Equal(404, resp.StatusCode)
}

func (s *HandlerSuite) TestValidateTokenAfterRelogin() {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/validate-token", s.partnerToken, nil)
	s.Equal(200, resp.StatusCode)
	s.Equal(true, body["valid"])

	s.login("partner@acme.test", "partner-pass")

	resp, body = s.do(http.MethodPost, "/api/v1/auth/validate-token", s.partnerToken, nil)
	s.Equal(401, resp.StatusCode)
	s.Equal(false, body["valid"])
}

func (s *HandlerSuite) TestManualAddFormPayload() {
	resp, body := s.do(http.MethodPost, "/api/v1/products", s.partnerToken, map[string]interface{}{
		"name": "Widget", "sku": "W1", "batchNumber": "B1", "description": "boxed", "quantity": "3",
	})
	s.Require().Equal(201, resp.StatusCode, "%v", body)
	s.Len(body["codes"], 3)
	product := body["product"].(map[string]interface{})
	s.Equal("W1", product["sku"])

	resp, body = s.do(http.MethodPost, "/api/v1/products", s.partnerToken, map[string]interface{}{
		"name": "Widget", "sku": "W1", "batchNumber": "B1", "quantity": 2,
	})
	s.Require().Equal(201, resp.StatusCode, "%v", body)
	s.Len(body["codes"], 2)

	resp, body = s.do(http.MethodPost, "/api/v1/products", s.partnerToken, map[string]interface{}{
		"name": "Widget", "sku": "W2", "batchNumber": "B1", "quantity": "lots",
	})
	s.Equal(400, resp.StatusCode)
	s.Equal("VALIDATION_ERROR", body["code"])
}

func (s *HandlerSuite) TestUnknownRouteIsNotFound() {
	resp, _ := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	s.Equal(404, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/v1/products", "", nil)
	s.Equal(401, resp.StatusCode)
}

func (s *HandlerSuite) TestSocketNeedsSession() {
	resp, _ := s.do(http.MethodGet, "/ws", "", nil)
	s.Equal(401, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/ws?token=garbage", "", nil)
	s.Equal(401, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/ws?token="+s.partnerToken, "", nil)
	s.Equal(fiber.StatusUpgradeRequired, resp.StatusCode)
}
