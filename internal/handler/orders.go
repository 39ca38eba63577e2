package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"akppos/internal/apierror"
	"akppos/internal/dto"
	"akppos/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct {
	svc      service.OrderService
	invoices service.InvoiceService
}

func NewOrdersHandler(svc service.OrderService, invoices service.InvoiceService) *OrdersHandler {
	return &OrdersHandler{svc: svc, invoices: invoices}
}

// Checkout godoc
// @Summary      Check out a cart
// @Description  Validates the cart against current stock and commits the order, stock decrements
// @Description  and SALE inventory entries atomically. Invoice generation runs asynchronously.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CheckoutRequest true "Cart"
// @Success      201  {object} dto.OrderResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Failure      500  {object} apierror.APIError
// @Router       /v1/orders [post]
func (h *OrdersHandler) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List orders
// @Description  Newest first, with cashier name and items.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page" default(1)
// @Param        limit query int false "Page size" default(50)
// @Success      200 {object} dto.OrderListResponse
// @Router       /v1/orders [get]
func (h *OrdersHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var filter dto.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), p, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrdersHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Invoice godoc
// @Summary      Invoice metadata of an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Order UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/orders/{id}/invoice [get]
func (h *OrdersHandler) Invoice(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.invoices.Get(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// InvoicePDF godoc
// @Summary      Download the invoice PDF
// @Description  Generated synchronously when the background job has not produced it yet.
// @Tags         orders
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "Order UUID"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/orders/{id}/invoice/pdf [get]
func (h *OrdersHandler) InvoicePDF(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	path, err := h.invoices.PDFPath(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	c.File(path)
}
