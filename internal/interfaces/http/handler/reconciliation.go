package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler serves bank statement import and reconciliation
type ReconciliationHandler struct {
	BaseHandler
	reconciliation *appfinance.ReconciliationService
	maxUploadSize  int64
}

// NewReconciliationHandler creates a new ReconciliationHandler. Uploaded
// statements larger than maxUploadSize bytes are rejected.
func NewReconciliationHandler(reconciliation *appfinance.ReconciliationService, maxUploadSize int64) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliation: reconciliation, maxUploadSize: maxUploadSize}
}

// RegisterRoutes mounts the reconciliation endpoints on rg
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/bank-reconciliation")
	g.GET("/statements", h.ListStatements)
	g.POST("/statements", h.Import)
	g.GET("/statements/:id", h.GetStatement)
	g.GET("/statements/:id/entries", h.ListEntries)
	g.GET("/statements/:id/report", h.Report)
	g.POST("/statements/:id/auto-match", h.AutoMatch)
	g.POST("/statements/:id/apply-rules", h.ApplyRules)
	g.GET("/summary", h.Summary)
	g.GET("/entries/:id/suggestions", h.Suggestions)
	g.POST("/entries/:id/match", h.Match)
	g.POST("/entries/:id/ignore", h.Ignore)
	g.POST("/entries/:id/learn-rule", h.LearnRule)
}

// ListStatements godoc
// @Summary      List imported statements
// @Tags         bank-reconciliation
// @Produce      json
// @Param        bank_account_id query string false "Bank account"
// @Param        page            query int    false "Page" default(1)
// @Param        per_page        query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appfinance.StatementResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements [get]
func (h *ReconciliationHandler) ListStatements(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.StatementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PerPage: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PerPage

	items, total, err := h.reconciliation.ListStatements(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PerPage)
}

// Import godoc
// @Summary      Import bank statement
// @Description  Accepts OFX, CNAB 240/400 and CSV. The whole file is rejected when a record is malformed. Re-uploading an identical file is a 409.
// @Tags         bank-reconciliation
// @Accept       multipart/form-data
// @Produce      json
// @Param        file            formData file   true  "Statement file"
// @Param        bank_account_id formData string false "Bank account"
// @Param        auto_reconcile  formData bool   false "Run auto-match and rules after import"
// @Success      201 {object} dto.Response{data=appfinance.ImportResult}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements [post]
func (h *ReconciliationHandler) Import(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleBindError(c, err)
			return
		}
		h.ValidationFailed(c, map[string][]string{"file": {"This field is required"}})
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadSize))
		return
	}

	content, err := readUpload(fileHeader)
	if err != nil {
		h.HandleError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	req := appfinance.ImportStatementRequest{
		Filename: fileHeader.Filename,
		Content:  content,
	}
	if raw := c.PostForm("bank_account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.ValidationFailed(c, map[string][]string{"bank_account_id": {"Invalid UUID format"}})
			return
		}
		req.BankAccountID = &id
	}
	if raw := c.PostForm("auto_reconcile"); raw != "" {
		auto, err := strconv.ParseBool(raw)
		if err != nil {
			h.ValidationFailed(c, map[string][]string{"auto_reconcile": {"Must be true or false"}})
			return
		}
		req.AutoReconcile = auto
	}

	result, err := h.reconciliation.Import(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GetStatement godoc
// @Summary      Get statement with entries
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id path string true "Statement ID"
// @Success      200 {object} dto.Response{data=appfinance.StatementDetail}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements/{id} [get]
func (h *ReconciliationHandler) GetStatement(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.reconciliation.GetStatement(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// ListEntries godoc
// @Summary      List statement entries
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id       path  string true  "Statement ID"
// @Param        status   query string false "pending, matched or ignored"
// @Param        page     query int    false "Page" default(1)
// @Param        per_page query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appfinance.EntryResponse,meta=dto.Meta}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements/{id}/entries [get]
func (h *ReconciliationHandler) ListEntries(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var filter appfinance.EntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PerPage: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PerPage

	items, total, err := h.reconciliation.ListEntries(c.Request.Context(), tenantID, id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PerPage)
}

// Report godoc
// @Summary      Download reconciliation report
// @Description  PDF when a browser is configured, HTML otherwise.
// @Tags         bank-reconciliation
// @Produce      application/pdf
// @Produce      text/html
// @Param        id path string true "Statement ID"
// @Success      200 {file} file
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements/{id}/report [get]
func (h *ReconciliationHandler) Report(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.reconciliation.StatementReport(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

// AutoMatch godoc
// @Summary      Auto-match statement entries
// @Description  Links pending entries to the single open title with the same amount near the same date.
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id path string true "Statement ID"
// @Success      200 {object} dto.Response{data=appfinance.EngineResult}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements/{id}/auto-match [post]
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.reconciliation.AutoMatch(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ApplyRules godoc
// @Summary      Apply reconciliation rules
// @Description  Runs the active rules over pending entries, lowest priority number first. The first matching rule wins.
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id path string true "Statement ID"
// @Success      200 {object} dto.Response{data=appfinance.EngineResult}
// @Security     BearerAuth
// @Router       /bank-reconciliation/statements/{id}/apply-rules [post]
func (h *ReconciliationHandler) ApplyRules(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.reconciliation.ApplyRules(c.Request.Context(), tenantID, &id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

type summaryQuery struct {
	StatementID string `form:"statement_id" binding:"omitempty,uuid"`
}

// Summary godoc
// @Summary      Reconciliation summary
// @Tags         bank-reconciliation
// @Produce      json
// @Param        statement_id query string false "Limit to one statement"
// @Success      200 {object} dto.Response{data=finance.ReconciliationSummary}
// @Security     BearerAuth
// @Router       /bank-reconciliation/summary [get]
func (h *ReconciliationHandler) Summary(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var q summaryQuery
	if !h.bindQuery(c, &q) {
		return
	}
	var statementID *uuid.UUID
	if q.StatementID != "" {
		id := uuid.MustParse(q.StatementID)
		statementID = &id
	}
	summary, err := h.reconciliation.Summary(c.Request.Context(), tenantID, statementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

type suggestionQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=20"`
}

// Suggestions godoc
// @Summary      Match suggestions for an entry
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id    path  string true  "Entry ID"
// @Param        limit query int    false "Max suggestions" default(5)
// @Success      200 {object} dto.Response{data=[]finance.Suggestion}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/entries/{id}/suggestions [get]
func (h *ReconciliationHandler) Suggestions(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q suggestionQuery
	if !h.bindQuery(c, &q) {
		return
	}
	suggestions, err := h.reconciliation.Suggestions(c.Request.Context(), tenantID, id, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestions)
}

// Match godoc
// @Summary      Link an entry to a title
// @Description  Linkage only; no payment is recorded. Matching an entry twice to the same title is a no-op; a different target is a 409.
// @Tags         bank-reconciliation
// @Accept       json
// @Produce      json
// @Param        id      path string                       true "Entry ID"
// @Param        request body appfinance.MatchEntryRequest true "Target title"
// @Success      200 {object} dto.Response{data=appfinance.EntryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/entries/{id}/match [post]
func (h *ReconciliationHandler) Match(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.MatchEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.reconciliation.MatchEntry(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Ignore godoc
// @Summary      Ignore an entry
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} dto.Response{data=appfinance.EntryResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/entries/{id}/ignore [post]
func (h *ReconciliationHandler) Ignore(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.reconciliation.IgnoreEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// LearnRule godoc
// @Summary      Learn a rule from a matched entry
// @Tags         bank-reconciliation
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      201 {object} dto.Response{data=appfinance.LearnedRule}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bank-reconciliation/entries/{id}/learn-rule [post]
func (h *ReconciliationHandler) LearnRule(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	learned, err := h.reconciliation.LearnRule(c.Request.Context(), tenantID, h.actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, learned)
}
