package handler

import (
	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RuleHandler manages reconciliation rules
type RuleHandler struct {
	BaseHandler
	rules          *appfinance.RuleService
	reconciliation *appfinance.ReconciliationService
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(rules *appfinance.RuleService, reconciliation *appfinance.ReconciliationService) *RuleHandler {
	return &RuleHandler{rules: rules, reconciliation: reconciliation}
}

// RegisterRoutes mounts the rule endpoints on rg
func (h *RuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reconciliation-rules")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/test", h.Test)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/toggle", h.Toggle)
}

// List godoc
// @Summary      List reconciliation rules
// @Description  Ordered by priority, lowest number first.
// @Tags         reconciliation-rules
// @Produce      json
// @Param        active_only query bool false "Only active rules"
// @Param        page        query int  false "Page" default(1)
// @Param        per_page    query int  false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appfinance.RuleResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /reconciliation-rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter appfinance.RuleListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PerPage: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PerPage

	items, total, err := h.rules.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page.Page, page.PerPage)
}

// Create godoc
// @Summary      Create reconciliation rule
// @Tags         reconciliation-rules
// @Accept       json
// @Produce      json
// @Param        request body appfinance.RuleRequest true "Rule"
// @Success      201 {object} dto.Response{data=appfinance.RuleResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation-rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// Get godoc
// @Summary      Get reconciliation rule
// @Tags         reconciliation-rules
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} dto.Response{data=appfinance.RuleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation-rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Update godoc
// @Summary      Update reconciliation rule
// @Tags         reconciliation-rules
// @Accept       json
// @Produce      json
// @Param        id      path string                 true "Rule ID"
// @Param        request body appfinance.RuleRequest true "Rule"
// @Success      200 {object} dto.Response{data=appfinance.RuleResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation-rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete godoc
// @Summary      Delete reconciliation rule
// @Tags         reconciliation-rules
// @Param        id path string true "Rule ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation-rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Toggle godoc
// @Summary      Activate or deactivate a rule
// @Tags         reconciliation-rules
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} dto.Response{data=appfinance.RuleResponse}
// @Security     BearerAuth
// @Router       /reconciliation-rules/{id}/toggle [post]
func (h *RuleHandler) Toggle(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.Toggle(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Test godoc
// @Summary      Dry-run a rule
// @Description  Evaluates an unsaved rule against the pending entries and reports what it would match.
// @Tags         reconciliation-rules
// @Accept       json
// @Produce      json
// @Param        request body appfinance.RuleRequest true "Rule"
// @Success      200 {object} dto.Response{data=finance.RuleTestResult}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation-rules/test [post]
func (h *RuleHandler) Test(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.reconciliation.TestRule(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
