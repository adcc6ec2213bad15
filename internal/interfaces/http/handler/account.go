package handler

import (
	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// AccountHandler manages the chart of accounts
type AccountHandler struct {
	BaseHandler
	accounts *appfinance.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *appfinance.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes mounts the chart of accounts endpoints on rg
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/chart-of-accounts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/tree", h.Tree)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary      List accounts
// @Tags         chart-of-accounts
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appfinance.AccountResponse}
// @Security     BearerAuth
// @Router       /chart-of-accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accounts, err := h.accounts.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Tree godoc
// @Summary      Account hierarchy
// @Tags         chart-of-accounts
// @Produce      json
// @Success      200 {object} dto.Response{data=[]finance.AccountNode}
// @Security     BearerAuth
// @Router       /chart-of-accounts/tree [get]
func (h *AccountHandler) Tree(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	tree, err := h.accounts.Tree(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// Create godoc
// @Summary      Create account
// @Description  Codes are unique per tenant; a duplicate is a 409.
// @Tags         chart-of-accounts
// @Accept       json
// @Produce      json
// @Param        request body appfinance.AccountRequest true "Account"
// @Success      201 {object} dto.Response{data=appfinance.AccountResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chart-of-accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.AccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Create(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Get godoc
// @Summary      Get account
// @Tags         chart-of-accounts
// @Produce      json
// @Param        id path string true "Account ID"
// @Success      200 {object} dto.Response{data=appfinance.AccountResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chart-of-accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Update godoc
// @Summary      Update account
// @Tags         chart-of-accounts
// @Accept       json
// @Produce      json
// @Param        id      path string                    true "Account ID"
// @Param        request body appfinance.AccountRequest true "Account"
// @Success      200 {object} dto.Response{data=appfinance.AccountResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chart-of-accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.AccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Delete godoc
// @Summary      Delete account
// @Description  Accounts with children or referenced by titles cannot be deleted.
// @Tags         chart-of-accounts
// @Param        id path string true "Account ID"
// @Success      204
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chart-of-accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
