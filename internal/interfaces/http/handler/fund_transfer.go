package handler

import (
	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// FundTransferHandler handles cash advances to technicians
type FundTransferHandler struct {
	BaseHandler
	transfers *appfinance.FundTransferService
}

// NewFundTransferHandler creates a new FundTransferHandler
func NewFundTransferHandler(transfers *appfinance.FundTransferService) *FundTransferHandler {
	return &FundTransferHandler{transfers: transfers}
}

// RegisterRoutes mounts the fund transfer endpoints on rg
func (h *FundTransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/financial/fund-transfers")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
}

// List godoc
// @Summary      List fund transfers
// @Tags         fund-transfers
// @Produce      json
// @Param        to_user_id      query string false "Recipient"
// @Param        bank_account_id query string false "Bank account"
// @Param        status          query string false "completed or cancelled"
// @Param        date_from       query string false "YYYY-MM-DD"
// @Param        date_to         query string false "YYYY-MM-DD"
// @Param        search          query string false "Description or recipient"
// @Param        page            query int    false "Page" default(1)
// @Param        per_page        query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appfinance.FundTransferResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /financial/fund-transfers [get]
func (h *FundTransferHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.FundTransferListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PerPage: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PerPage

	items, total, err := h.transfers.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PerPage)
}

// Create godoc
// @Summary      Transfer funds to a technician
// @Description  Books a payable for the amount and pays it on the transfer date in one transaction.
// @Tags         fund-transfers
// @Accept       json
// @Produce      json
// @Param        request body appfinance.CreateFundTransferRequest true "Transfer"
// @Success      201 {object} dto.Response{data=appfinance.FundTransferResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financial/fund-transfers [post]
func (h *FundTransferHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.CreateFundTransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	transfer, err := h.transfers.Create(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, transfer)
}

// Get godoc
// @Summary      Get fund transfer
// @Tags         fund-transfers
// @Produce      json
// @Param        id path string true "Transfer ID"
// @Success      200 {object} dto.Response{data=appfinance.FundTransferResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financial/fund-transfers/{id} [get]
func (h *FundTransferHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	transfer, err := h.transfers.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, transfer)
}

// Cancel godoc
// @Summary      Cancel fund transfer
// @Description  Reverses the transfer payment and cancels its payable.
// @Tags         fund-transfers
// @Accept       json
// @Produce      json
// @Param        id      path string                                 true  "Transfer ID"
// @Param        request body appfinance.CancelFundTransferRequest false "Reason"
// @Success      200 {object} dto.Response{data=appfinance.FundTransferResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /financial/fund-transfers/{id}/cancel [post]
func (h *FundTransferHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.CancelFundTransferRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	transfer, err := h.transfers.Cancel(c.Request.Context(), tenantID, h.actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, transfer)
}

// Summary godoc
// @Summary      Fund transfer totals
// @Description  Completed transfers this month, overall and per recipient this month.
// @Tags         fund-transfers
// @Produce      json
// @Success      200 {object} dto.Response{data=finance.FundTransferSummary}
// @Security     BearerAuth
// @Router       /financial/fund-transfers/summary [get]
func (h *FundTransferHandler) Summary(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	summary, err := h.transfers.Summary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
