package handler

import (
	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// FinancialHandler serves the cross-title operations: payment reversal,
// aging, cash-flow projection and batch settlement.
type FinancialHandler struct {
	BaseHandler
	payments *appfinance.PaymentService
	reports  *appfinance.ReportService
}

// NewFinancialHandler creates a new FinancialHandler
func NewFinancialHandler(payments *appfinance.PaymentService, reports *appfinance.ReportService) *FinancialHandler {
	return &FinancialHandler{payments: payments, reports: reports}
}

// RegisterRoutes mounts the financial endpoints on rg
func (h *FinancialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/:id/reverse", h.ReversePayment)

	g := rg.Group("/financial")
	g.GET("/aging-report", h.Aging)
	g.GET("/cash-flow-weekly", h.CashFlow)
	g.GET("/batch-payment-approval", h.BatchCandidates)
	g.POST("/batch-payment-approval", h.BatchSettle)
}

// ReversePayment godoc
// @Summary      Reverse payment
// @Description  Appends a negative ledger entry and restores the title balance. A payment is reversed at most once.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id      path string                           true "Payment ID"
// @Param        request body appfinance.ReversePaymentRequest true "Reason"
// @Success      200 {object} dto.Response{data=appfinance.PaymentResult}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/reverse [post]
func (h *FinancialHandler) ReversePayment(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.ReversePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.payments.ReversePayment(c.Request.Context(), tenantID, h.actor(c), paymentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

type agingQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=receivable payable"`
}

// Aging godoc
// @Summary      Aging report
// @Description  Open titles grouped by days overdue. Bucket totals add up to total_outstanding.
// @Tags         financial
// @Produce      json
// @Param        type query string false "receivable or payable" default(receivable)
// @Success      200 {object} dto.Response{data=finance.AgingReport}
// @Security     BearerAuth
// @Router       /financial/aging-report [get]
func (h *FinancialHandler) Aging(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var q agingQuery
	if !h.bindQuery(c, &q) {
		return
	}
	direction := finance.DirectionReceivable
	if q.Type != "" {
		direction = finance.Direction(q.Type)
	}
	report, err := h.reports.Aging(c.Request.Context(), tenantID, direction)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// CashFlow godoc
// @Summary      Cash-flow projection
// @Description  Daily inflows and outflows of open titles with a running balance.
// @Tags         financial
// @Produce      json
// @Param        weeks            query int    false "Weeks from today" default(4)
// @Param        from             query string false "YYYY-MM-DD"
// @Param        to               query string false "YYYY-MM-DD"
// @Param        initial_balance  query string false "Opening balance"
// @Param        margin_threshold query string false "Days below this balance are flagged"
// @Success      200 {object} dto.Response{data=finance.CashFlowProjection}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financial/cash-flow-weekly [get]
func (h *FinancialHandler) CashFlow(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.CashFlowRequest
	if !h.bindQuery(c, &req) {
		return
	}
	projection, err := h.reports.CashFlow(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, projection)
}

// BatchCandidates godoc
// @Summary      Titles eligible for batch settlement
// @Tags         financial
// @Produce      json
// @Param        type       query string false "receivable or payable" default(payable)
// @Param        due_before query string false "YYYY-MM-DD"
// @Param        min_amount query string false "Minimum open balance"
// @Param        limit      query int    false "Max results"
// @Success      200 {object} dto.Response{data=appfinance.BatchCandidates}
// @Security     BearerAuth
// @Router       /financial/batch-payment-approval [get]
func (h *FinancialHandler) BatchCandidates(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.BatchCandidatesFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	candidates, err := h.payments.ListBatchCandidates(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, candidates)
}

// BatchSettle godoc
// @Summary      Settle titles in one transaction
// @Description  Pays the open balance of every listed title. Titles already at zero are skipped; any other failure rolls back the whole batch.
// @Tags         financial
// @Accept       json
// @Produce      json
// @Param        request body appfinance.BatchSettleRequest true "Titles"
// @Success      200 {object} dto.Response{data=appfinance.BatchSettleResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financial/batch-payment-approval [post]
func (h *FinancialHandler) BatchSettle(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.BatchSettleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.payments.BatchSettle(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
