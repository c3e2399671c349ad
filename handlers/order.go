package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MoVahedi1/gym/catalog"
	"github.com/MoVahedi1/gym/checkout"
	"github.com/MoVahedi1/gym/middleware"
	"github.com/MoVahedi1/gym/models"
	"github.com/MoVahedi1/gym/orders"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service *checkout.Service
	logger  *zap.Logger
}

func NewOrderHandler(service *checkout.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("items.count", len(req.Items)),
	)

	order, err := h.service.CreateOrder(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) CapturePayment(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "CapturePayment")
	defer span.End()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int64("order.id", orderID))

	// Only the owner (or an admin) may pay for an order.
	if _, err := h.service.GetOrder(ctx, orderID, middleware.UserID(c), middleware.IsAdmin(c)); err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	order, err := h.service.CapturePayment(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		// Declines and stock conflicts still return the order so the client
		// can inspect payment.failure_reason and choose a retry strategy.
		if order != nil && (errors.Is(err, checkout.ErrPaymentDeclined) ||
			errors.Is(err, checkout.ErrStockChangedDuringCapture)) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "order": order})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int64("order.id", orderID))

	order, err := h.service.GetOrder(ctx, orderID, middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "GetMyOrders")
	defer span.End()

	page, limit := pagination(c)
	userID := middleware.UserID(c)
	span.SetAttributes(attribute.Int64("user_id", userID))

	result, total, err := h.service.ListOrdersForUser(ctx, userID, page, limit)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listResponse(result, page, limit, total))
}

func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "GetAllOrders")
	defer span.End()

	page, limit := pagination(c)

	result, total, err := h.service.ListAllOrders(ctx, page, limit)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listResponse(result, page, limit, total))
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	ctx, span := otel.Tracer("gym-shop").Start(c.Request.Context(), "UpdateOrderStatus")
	defer span.End()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", req.Status.String()),
	)

	order, err := h.service.SetOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// respondError maps the checkout error taxonomy onto HTTP status codes so
// clients can tell "fix your input" from "retry payment" from "re-validate
// your cart".
func (h *OrderHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrIllegalTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrProductUnavailable),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, checkout.ErrOrderNotPayable),
		errors.Is(err, checkout.ErrCaptureConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrPaymentDeclined),
		errors.Is(err, checkout.ErrStockChangedDuringCapture):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrPaymentUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Unhandled order error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func listResponse(result []models.Order, page, limit, total int) gin.H {
	if result == nil {
		result = []models.Order{}
	}
	pages := (total + limit - 1) / limit
	return gin.H{
		"orders": result,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	}
}
