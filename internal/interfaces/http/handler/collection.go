package handler

import (
	"context"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionHandler manages collection rules and manual collection runs
type CollectionHandler struct {
	BaseHandler
	collection *appfinance.CollectionService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collection *appfinance.CollectionService) *CollectionHandler {
	return &CollectionHandler{collection: collection}
}

// RegisterRoutes mounts the collection endpoints on rg
func (h *CollectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/collection-rules")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	rg.POST("/collection/run", h.Run)
}

// List godoc
// @Summary      List collection rules
// @Tags         collection
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appfinance.CollectionRuleResponse}
// @Security     BearerAuth
// @Router       /collection-rules [get]
func (h *CollectionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	rules, err := h.collection.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}

// Create godoc
// @Summary      Create collection rule
// @Description  days_before_due is negative for reminders after the due date.
// @Tags         collection
// @Accept       json
// @Produce      json
// @Param        request body appfinance.CollectionRuleRequest true "Rule"
// @Success      201 {object} dto.Response{data=appfinance.CollectionRuleResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /collection-rules [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req appfinance.CollectionRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.collection.Create(c.Request.Context(), tenantID, h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// Update godoc
// @Summary      Update collection rule
// @Tags         collection
// @Accept       json
// @Produce      json
// @Param        id      path string                           true "Rule ID"
// @Param        request body appfinance.CollectionRuleRequest true "Rule"
// @Success      200 {object} dto.Response{data=appfinance.CollectionRuleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /collection-rules/{id} [put]
func (h *CollectionHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.CollectionRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.collection.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete godoc
// @Summary      Delete collection rule
// @Tags         collection
// @Param        id path string true "Rule ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /collection-rules/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.collection.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Run godoc
// @Summary      Run collection now
// @Description  Starts today's collection run in the background and returns immediately.
// @Tags         collection
// @Produce      json
// @Success      202 {object} dto.Response
// @Security     BearerAuth
// @Router       /collection/run [post]
func (h *CollectionHandler) Run(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	go h.run(ctx, tenantID)
	h.Accepted(c, gin.H{"message": "collection run started"})
}

func (h *CollectionHandler) run(ctx context.Context, tenantID uuid.UUID) {
	log := logger.L(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("collection run panicked", zap.Any("panic", r))
		}
	}()
	result, err := h.collection.Run(ctx, tenantID)
	if err != nil {
		log.Error("collection run failed", zap.Error(err))
		return
	}
	log.Info("collection run finished",
		zap.Int("rules", result.Rules),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped))
}
