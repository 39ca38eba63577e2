package handler

import (
	"net/http"

	"akppos/internal/apierror"
	"akppos/internal/dto"
	"akppos/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportsHandler serves the read-only ADMIN views: inventory ledger,
// low-stock report and dashboard figures.
type ReportsHandler struct {
	inventory service.InventoryService
	dashboard service.DashboardService
}

func NewReportsHandler(inventory service.InventoryService, dashboard service.DashboardService) *ReportsHandler {
	return &ReportsHandler{inventory: inventory, dashboard: dashboard}
}

// InventoryLogs godoc
// @Summary Inventory ledger
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param productId query string false "Product UUID"
// @Param type query string false "INITIAL, SALE, RESTOCK or ADJUSTMENT"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} dto.InventoryLogListResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/inventory/logs [get]
func (h *ReportsHandler) InventoryLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var filter dto.InventoryLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.inventory.ListLogs(c.Request.Context(), p, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock godoc
// @Summary Low-stock report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.LowStockResponse
// @Router /v1/reports/low-stock [get]
func (h *ReportsHandler) LowStock(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	resp, err := h.inventory.LowStock(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) DashboardStats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	resp, err := h.dashboard.Stats(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
