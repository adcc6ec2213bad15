package handler

import (
	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// TitleHandler serves one direction of financial titles. The receivable and
// payable resources are two instances over the same services.
type TitleHandler struct {
	BaseHandler
	direction finance.Direction
	titles    *appfinance.TitleService
	payments  *appfinance.PaymentService
}

// NewTitleHandler creates a handler for the titles of direction
func NewTitleHandler(direction finance.Direction, titles *appfinance.TitleService, payments *appfinance.PaymentService) *TitleHandler {
	return &TitleHandler{direction: direction, titles: titles, payments: payments}
}

// Resource is the URL segment of the direction
func (h *TitleHandler) Resource() string {
	if h.direction == finance.DirectionPayable {
		return "accounts-payable"
	}
	return "accounts-receivable"
}

// RegisterRoutes mounts the title endpoints on rg
func (h *TitleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.Resource())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/summary", h.Summary)
	g.GET("/search", h.Search)
	if h.direction == finance.DirectionReceivable {
		g.POST("/from-work-order", h.FromWorkOrder)
		g.POST("/installments", h.Installments)
	}
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/pay", h.Pay)
	g.GET("/:id/payments", h.Payments)
}

func (h *TitleHandler) ref(c *gin.Context) (finance.TitleRef, bool) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return nil, false
	}
	ref, err := finance.NewTitleRef(h.direction, id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return ref, true
}

// List godoc
// @Summary      List titles
// @Description  Paginated titles of one direction. Status filters on the derived status, so overdue titles match "overdue".
// @Tags         titles
// @Produce      json
// @Param        direction     path   string true  "accounts-receivable or accounts-payable"
// @Param        search        query  string false "Text in description or counterparty"
// @Param        status        query  string false "pending, partial, paid, overdue or cancelled"
// @Param        due_from      query  string false "YYYY-MM-DD"
// @Param        due_to        query  string false "YYYY-MM-DD"
// @Param        page          query  int    false "Page" default(1)
// @Param        per_page      query  int    false "Page size" default(20)
// @Param        order_by      query  string false "due_date, amount, created_at, description or status"
// @Param        order_dir     query  string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]appfinance.TitleResponse,meta=dto.Meta}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction} [get]
func (h *TitleHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.TitleListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PerPage: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PerPage

	items, total, err := h.titles.List(c.Request.Context(), tenantID, h.direction, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PerPage)
}

// Create godoc
// @Summary      Create title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        direction path string                        true "accounts-receivable or accounts-payable"
// @Param        request   body appfinance.CreateTitleRequest true "Title"
// @Success      201 {object} dto.Response{data=appfinance.TitleResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction} [post]
func (h *TitleHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.CreateTitleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	title, err := h.titles.Create(c.Request.Context(), tenantID, h.actor(c), h.direction, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, title)
}

// Get godoc
// @Summary      Get title
// @Tags         titles
// @Produce      json
// @Param        direction path string true "accounts-receivable or accounts-payable"
// @Param        id        path string true "Title ID"
// @Success      200 {object} dto.Response{data=appfinance.TitleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id} [get]
func (h *TitleHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	title, err := h.titles.Get(c.Request.Context(), tenantID, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// Update godoc
// @Summary      Edit title
// @Description  Partial edit. Cancelled and paid titles are rejected with 409; the amount cannot drop below what was paid.
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        direction path string                        true "accounts-receivable or accounts-payable"
// @Param        id        path string                        true "Title ID"
// @Param        request   body appfinance.UpdateTitleRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=appfinance.TitleResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id} [put]
func (h *TitleHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var req appfinance.UpdateTitleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	title, err := h.titles.Update(c.Request.Context(), tenantID, ref, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// Delete godoc
// @Summary      Delete title
// @Description  Requires the delete capability of the direction. Titles with payments cannot be deleted.
// @Tags         titles
// @Param        direction path string true "accounts-receivable or accounts-payable"
// @Param        id        path string true "Title ID"
// @Success      204
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id} [delete]
func (h *TitleHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	if err := h.titles.Delete(c.Request.Context(), tenantID, h.actor(c), ref); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Cancel godoc
// @Summary      Cancel title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        direction path string                        true  "accounts-receivable or accounts-payable"
// @Param        id        path string                        true  "Title ID"
// @Param        request   body appfinance.CancelTitleRequest false "Reason"
// @Success      200 {object} dto.Response{data=appfinance.TitleResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id}/cancel [post]
func (h *TitleHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var req appfinance.CancelTitleRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	title, err := h.titles.Cancel(c.Request.Context(), tenantID, ref, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// Pay godoc
// @Summary      Record payment
// @Description  Appends a payment to the ledger. Amounts above the open balance are rejected.
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        direction path string                          true "accounts-receivable or accounts-payable"
// @Param        id        path string                          true "Title ID"
// @Param        request   body appfinance.RecordPaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=appfinance.PaymentResult}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id}/pay [post]
func (h *TitleHandler) Pay(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	var req appfinance.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.payments.RecordPayment(c.Request.Context(), tenantID, h.actor(c), ref, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Payments godoc
// @Summary      List payments of a title
// @Tags         titles
// @Produce      json
// @Param        direction path string true "accounts-receivable or accounts-payable"
// @Param        id        path string true "Title ID"
// @Success      200 {object} dto.Response{data=[]appfinance.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{direction}/{id}/payments [get]
func (h *TitleHandler) Payments(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ref, ok := h.ref(c)
	if !ok {
		return
	}
	payments, err := h.payments.ListPayments(c.Request.Context(), tenantID, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Summary godoc
// @Summary      Title totals
// @Tags         titles
// @Produce      json
// @Param        direction path string true "accounts-receivable or accounts-payable"
// @Success      200 {object} dto.Response{data=finance.TitleSummary}
// @Security     BearerAuth
// @Router       /{direction}/summary [get]
func (h *TitleHandler) Summary(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	summary, err := h.titles.Summary(c.Request.Context(), tenantID, h.direction)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Search godoc
// @Summary      Search open titles
// @Tags         titles
// @Produce      json
// @Param        direction       path  string true  "accounts-receivable or accounts-payable"
// @Param        q               query string false "Text"
// @Param        counterparty_id query string false "Counterparty"
// @Param        limit           query int    false "Max results" default(20)
// @Success      200 {object} dto.Response{data=[]appfinance.TitleResponse}
// @Security     BearerAuth
// @Router       /{direction}/search [get]
func (h *TitleHandler) Search(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.SearchFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	items, err := h.titles.Search(c.Request.Context(), tenantID, h.direction, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// FromWorkOrder godoc
// @Summary      Receivable from a work order
// @Description  Idempotent per work order: a second call returns 409.
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        request body appfinance.WorkOrderTitleRequest true "Work order"
// @Success      201 {object} dto.Response{data=appfinance.TitleResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts-receivable/from-work-order [post]
func (h *TitleHandler) FromWorkOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.WorkOrderTitleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	title, err := h.titles.GenerateFromWorkOrder(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, title)
}

// Installments godoc
// @Summary      Receivable installments
// @Description  Splits a total into monthly receivables; the last one absorbs the rounding remainder.
// @Tags         titles
// @Accept       json
// @Produce      json
// @Param        request body appfinance.InstallmentRequest true "Installment plan"
// @Success      201 {object} dto.Response{data=[]appfinance.TitleResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts-receivable/installments [post]
func (h *TitleHandler) Installments(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.InstallmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	titles, err := h.titles.GenerateInstallments(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, titles)
}
