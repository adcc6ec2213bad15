package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/auth"
	"github.com/erp/finance/internal/infrastructure/bankfile"
	"github.com/erp/finance/internal/infrastructure/cache"
	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/erp/finance/internal/infrastructure/persistence"
	"github.com/erp/finance/internal/interfaces/http/dto"
	"github.com/erp/finance/internal/interfaces/http/middleware"
	"github.com/erp/finance/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type testServer struct {
	t        *testing.T
	engine   *gin.Engine
	jwt      *auth.JWTService
	db       *persistence.Database
	tenantID uuid.UUID
	token    string
}

// newTestServer wires the real services over an in-memory database. The
// default caller holds every permission.
func newTestServer(t *testing.T, permissions ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	opts := []appfinance.Option{appfinance.WithLogger(zap.NewNop())}

	titles := appfinance.NewTitleService(repos, txScope, cache.NewInMemorySummaryCache(time.Minute), opts...)
	payments := appfinance.NewPaymentService(repos, txScope, opts...)
	reconciliation := appfinance.NewReconciliationService(repos, txScope, bankfile.NewParser(), nil, nil, opts...)
	rules := appfinance.NewRuleService(repos.Rules, opts...)
	accounts := appfinance.NewAccountService(repos.Accounts, repos.Titles, opts...)
	collection := appfinance.NewCollectionService(repos, opts...)
	reports := appfinance.NewReportService(repos.Titles, opts...)
	transfers := appfinance.NewFundTransferService(repos, txScope, opts...)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-with-enough-length",
		Issuer:                "finance-test",
		AccessTokenExpiration: time.Hour,
	})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	health := NewHealthHandler(db, "test")
	engine.GET("/health", health.Health)
	router.NewRouter(engine).
		Use(middleware.JWTAuth(jwtService, zap.NewNop())).
		Register(
			NewTitleHandler(finance.DirectionReceivable, titles, payments),
			NewTitleHandler(finance.DirectionPayable, titles, payments),
			NewFinancialHandler(payments, reports),
			NewReconciliationHandler(reconciliation, 1<<20),
			NewRuleHandler(rules, reconciliation),
			NewAccountHandler(accounts),
			NewCollectionHandler(collection),
			NewFundTransferHandler(transfers),
		).
		Setup()

	if len(permissions) == 0 {
		permissions = []string{"*"}
	}
	s := &testServer{t: t, engine: engine, jwt: jwtService, db: db, tenantID: uuid.New()}
	s.token = s.tokenFor(s.tenantID, permissions...)
	return s
}

func (s *testServer) tokenFor(tenantID uuid.UUID, permissions ...string) string {
	token, _, err := s.jwt.GenerateAccessToken(auth.TokenInput{
		TenantID:    tenantID,
		UserID:      uuid.New(),
		Username:    "tester",
		Permissions: permissions,
	})
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

func (s *testServer) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) upload(filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-reconciliation/statements", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req)
}

func (s *testServer) createTitle(resource string, amount string, due time.Time) appfinance.TitleResponse {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/"+resource, map[string]any{
		"counterparty_name": "Acme Ltda",
		"description":       "Service invoice",
		"amount":            amount,
		"due_date":          due.Format("2006-01-02"),
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var title appfinance.TitleResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &title))
	return title
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func daysFromToday(n int) time.Time {
	return time.Now().UTC().AddDate(0, 0, n)
}

func TestPayableLifecycle_OverdueAgingAndPayment(t *testing.T) {
	s := newTestServer(t)
	title := s.createTitle("accounts-payable", "1500.00", daysFromToday(-45))
	assert.Equal(t, finance.TitleStatusOverdue, title.Status)
	assert.Equal(t, 45, title.DaysOverdue)

	w, env := s.do(http.MethodGet, "/api/v1/financial/aging-report?type=payable", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[finance.AgingReport](t, env.Data)
	require.Contains(t, report.Buckets, finance.Aging31To60)
	assert.Equal(t, 1, report.Buckets[finance.Aging31To60].Count)
	assert.True(t, report.TotalOverdue.Equal(decimal.RequireFromString("1500")))

	w, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts-payable/%s/pay", title.ID), map[string]any{
		"amount":         "500",
		"payment_method": "pix",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partial := decode[appfinance.PaymentResult](t, env.Data)
	assert.True(t, partial.Title.RemainingAmount.Equal(decimal.RequireFromString("1000")))

	w, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts-payable/%s/pay", title.ID), map[string]any{
		"amount":         "1000",
		"payment_method": "pix",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[appfinance.PaymentResult](t, env.Data)
	assert.Equal(t, finance.TitleStatusPaid, paid.Title.Status)
	assert.NotNil(t, paid.Title.PaidAt)

	w, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts-payable/%s/pay", title.ID), map[string]any{
		"amount":         "1",
		"payment_method": "pix",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeConflict, env.Error.Code)

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/v1/accounts-payable/%s/payments", title.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]appfinance.PaymentResponse](t, env.Data), 2)

	w, env = s.do(http.MethodGet, "/api/v1/financial/aging-report?type=payable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[finance.AgingReport](t, env.Data).TotalRecords)
}

func TestTitle_DirectionIsolation(t *testing.T) {
	s := newTestServer(t)
	title := s.createTitle("accounts-receivable", "100", daysFromToday(10))

	w, _ := s.do(http.MethodGet, "/api/v1/accounts-receivable/"+title.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/accounts-payable/"+title.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)

	other := s.tokenFor(uuid.New(), "*")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts-receivable/"+title.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w, _ = s.send(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTitle_InvalidPathID(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/accounts-receivable/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
}

func TestTitle_CreateValidationDetails(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/accounts-receivable", map[string]any{
		"description": "",
		"due_date":    "2026-01-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	assert.Contains(t, env.Error.Details, "description")
	assert.Contains(t, env.Error.Details, "amount")
	assert.NotContains(t, env.Error.Details, "due_date")
}

func TestTitle_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts-receivable", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w, _ := s.send(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTitle_DeleteRequiresPermission(t *testing.T) {
	s := newTestServer(t, "payable:read", "payable:write")
	title := s.createTitle("accounts-payable", "80", daysFromToday(5))

	w, env := s.do(http.MethodDelete, "/api/v1/accounts-payable/"+title.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeForbidden, env.Error.Code)

	s.token = s.tokenFor(s.tenantID, "payable:*")
	w, _ = s.do(http.MethodDelete, "/api/v1/accounts-payable/"+title.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/accounts-payable/"+title.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTitle_CancelThenPayConflicts(t *testing.T) {
	s := newTestServer(t)
	title := s.createTitle("accounts-receivable", "250", daysFromToday(3))

	w, env := s.do(http.MethodPost, "/api/v1/accounts-receivable/"+title.ID.String()+"/cancel",
		map[string]any{"reason": "duplicated invoice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[appfinance.TitleResponse](t, env.Data)
	assert.Equal(t, finance.TitleStatusCancelled, cancelled.Status)

	w, _ = s.do(http.MethodPost, "/api/v1/accounts-receivable/"+title.ID.String()+"/pay", map[string]any{
		"amount":         "10",
		"payment_method": "cash",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/accounts-receivable/"+title.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTitle_ListPagination(t *testing.T) {
	s := newTestServer(t)
	for i := range 3 {
		s.createTitle("accounts-receivable", "10", daysFromToday(i+1))
	}
	w, env := s.do(http.MethodGet, "/api/v1/accounts-receivable?page=1&per_page=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appfinance.TitleResponse](t, env.Data), 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
}

func TestBatchSettle_RollsBackOnCancelledMember(t *testing.T) {
	s := newTestServer(t)
	open := s.createTitle("accounts-payable", "300", daysFromToday(2))
	cancelled := s.createTitle("accounts-payable", "200", daysFromToday(2))
	w, _ := s.do(http.MethodPost, "/api/v1/accounts-payable/"+cancelled.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/financial/batch-payment-approval", map[string]any{
		"ids":            []uuid.UUID{open.ID, cancelled.ID},
		"payment_method": "ted",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)

	w, env = s.do(http.MethodGet, "/api/v1/accounts-payable/"+open.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[appfinance.TitleResponse](t, env.Data).AmountPaid.IsZero())

	w, env = s.do(http.MethodPost, "/api/v1/financial/batch-payment-approval", map[string]any{
		"ids":            []uuid.UUID{open.ID},
		"payment_method": "ted",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[appfinance.BatchSettleResult](t, env.Data)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("300")))
}

func TestReversePayment_RequiresReason(t *testing.T) {
	s := newTestServer(t)
	title := s.createTitle("accounts-receivable", "90", daysFromToday(1))
	w, env := s.do(http.MethodPost, "/api/v1/accounts-receivable/"+title.ID.String()+"/pay", map[string]any{
		"amount":         "90",
		"payment_method": "boleto",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[appfinance.PaymentResult](t, env.Data)

	w, env = s.do(http.MethodPost, "/api/v1/payments/"+paid.Payment.ID.String()+"/reverse", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "reason")

	w, env = s.do(http.MethodPost, "/api/v1/payments/"+paid.Payment.ID.String()+"/reverse",
		map[string]any{"reason": "bounced"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reversed := decode[appfinance.PaymentResult](t, env.Data)
	assert.NotEqual(t, finance.TitleStatusPaid, reversed.Title.Status)
	assert.True(t, reversed.Title.AmountPaid.IsZero())
}

const statementCSV = "date,description,amount\n" +
	"2026-03-02,PIX RECEBIDO ACME,1500.00\n" +
	"2026-03-03,TARIFA BANCARIA,-12.50\n" +
	"2026-03-04,TED ENVIADA FORNECEDOR,-800.00\n"

func TestReconciliation_ImportListAndIgnore(t *testing.T) {
	s := newTestServer(t)

	w, env := s.upload("extrato.csv", []byte(statementCSV))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	imported := decode[appfinance.ImportResult](t, env.Data)
	statementID := imported.Statement.ID

	w, env = s.do(http.MethodGet, "/api/v1/bank-reconciliation/statements/"+statementID.String()+"/entries", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := decode[[]appfinance.EntryResponse](t, env.Data)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, finance.EntryStatusPending, e.Status)
	}

	w, env = s.do(http.MethodPost, "/api/v1/bank-reconciliation/entries/"+entries[1].ID.String()+"/ignore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, finance.EntryStatusIgnored, decode[appfinance.EntryResponse](t, env.Data).Status)

	w, env = s.do(http.MethodGet, "/api/v1/bank-reconciliation/summary?statement_id="+statementID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[finance.ReconciliationSummary](t, env.Data)
	assert.Equal(t, 3, summary.TotalEntries)
	assert.Equal(t, 1, summary.IgnoredCount)
	assert.Equal(t, 2, summary.PendingCount)

	w, _ = s.upload("extrato-copy.csv", []byte(statementCSV))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReconciliation_ImportRejectsBadFiles(t *testing.T) {
	s := newTestServer(t)

	w, env := s.upload("empty.csv", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "file")

	w, env = s.upload("notes.txt", []byte("just some words\nwithout any structure"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-reconciliation/statements", nil)
	w, env = s.send(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "file")
}

func TestRules_CreateAndApply(t *testing.T) {
	s := newTestServer(t)
	w, env := s.upload("extrato.csv", []byte(statementCSV))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	statementID := decode[appfinance.ImportResult](t, env.Data).Statement.ID

	w, _ = s.do(http.MethodPost, "/api/v1/reconciliation-rules", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/reconciliation-rules", map[string]any{
		"name":           "Bank fees",
		"priority":       1,
		"match_field":    "description",
		"match_operator": "contains",
		"match_value":    "tarifa",
		"action":         "categorize",
		"category":       "bank_fees",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rule := decode[appfinance.RuleResponse](t, env.Data)
	assert.True(t, rule.IsActive)

	for _, wantActive := range []bool{false, true} {
		w, env = s.do(http.MethodPost, "/api/v1/reconciliation-rules/"+rule.ID.String()+"/toggle", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, wantActive, decode[appfinance.RuleResponse](t, env.Data).IsActive)
	}

	w, env = s.do(http.MethodPost, "/api/v1/bank-reconciliation/statements/"+statementID.String()+"/apply-rules", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[appfinance.EngineResult](t, env.Data)
	assert.Equal(t, 1, result.Applied)
}

func TestChartOfAccounts_DeleteParentConflicts(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/chart-of-accounts", map[string]any{
		"code": "3", "name": "Revenue", "type": "revenue",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	parent := decode[appfinance.AccountResponse](t, env.Data)

	w, _ = s.do(http.MethodPost, "/api/v1/chart-of-accounts", map[string]any{
		"code": "3.1", "name": "Services", "type": "revenue", "parent_id": parent.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(http.MethodDelete, "/api/v1/chart-of-accounts/"+parent.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/chart-of-accounts/tree", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)
}

func TestCollectionRun_Accepted(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/collection/run", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)
}

func TestFundTransfer_CreateAndCancel(t *testing.T) {
	s := newTestServer(t)
	technician := uuid.New()

	w, env := s.do(http.MethodPost, "/api/v1/financial/fund-transfers", map[string]any{
		"bank_account_id": uuid.New(),
		"to_user_id":      technician,
		"recipient_name":  "Carlos",
		"amount":          "450.00",
		"transfer_date":   daysFromToday(0).Format("2006-01-02"),
		"payment_method":  "pix",
		"description":     "Adiantamento de viagem",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transfer := decode[appfinance.FundTransferResponse](t, env.Data)
	assert.Equal(t, finance.FundTransferCompleted, transfer.Status)
	require.NotNil(t, transfer.PayableID)

	w, env = s.do(http.MethodGet, "/api/v1/accounts-payable/"+transfer.PayableID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payable := decode[appfinance.TitleResponse](t, env.Data)
	assert.Equal(t, finance.TitleStatusPaid, payable.Status)
	assert.True(t, payable.AmountPaid.Equal(decimal.RequireFromString("450")))

	w, env = s.do(http.MethodGet, "/api/v1/financial/fund-transfers/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[finance.FundTransferSummary](t, env.Data)
	assert.True(t, summary.MonthTotal.Equal(decimal.RequireFromString("450")))
	require.Len(t, summary.ByRecipient, 1)
	assert.Equal(t, technician, summary.ByRecipient[0].ToUserID)

	w, env = s.do(http.MethodGet, "/api/v1/financial/fund-transfers?to_user_id="+technician.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appfinance.FundTransferResponse](t, env.Data), 1)

	w, env = s.do(http.MethodPost, "/api/v1/financial/fund-transfers/"+transfer.ID.String()+"/cancel",
		map[string]any{"reason": "viagem adiada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, finance.FundTransferCancelled, decode[appfinance.FundTransferResponse](t, env.Data).Status)

	w, env = s.do(http.MethodGet, "/api/v1/accounts-payable/"+transfer.PayableID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	payable = decode[appfinance.TitleResponse](t, env.Data)
	assert.Equal(t, finance.TitleStatusCancelled, payable.Status)
	assert.True(t, payable.AmountPaid.IsZero())

	w, env = s.do(http.MethodGet, "/api/v1/accounts-payable/"+transfer.PayableID.String()+"/payments", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appfinance.PaymentResponse](t, env.Data), 2)

	w, _ = s.do(http.MethodPost, "/api/v1/financial/fund-transfers/"+transfer.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/financial/fund-transfers/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[finance.FundTransferSummary](t, env.Data).TotalAll.IsZero())
}

func TestFundTransfer_RejectsInvalidInput(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/financial/fund-transfers", map[string]any{
		"bank_account_id": uuid.New(),
		"to_user_id":      uuid.New(),
		"amount":          "0.001",
		"transfer_date":   "15/03/2026",
		"payment_method":  "pix",
		"description":     "x",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)

	w, _ = s.do(http.MethodGet, "/api/v1/financial/fund-transfers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts-receivable", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w, env := s.send(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeTokenInvalid, env.Error.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
	assert.Contains(t, w.Body.String(), `"connections"`)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/health", NewHealthHandler(failingPinger{}, "test").Health)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.NotContains(t, w.Body.String(), `"connections"`)
}
