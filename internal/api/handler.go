package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pos-service/internal/cart"
	"pos-service/internal/connectivity"
	"pos-service/internal/inventory"
	"pos-service/internal/models"
	"pos-service/internal/notice"
	"pos-service/internal/pending"
	"pos-service/internal/reconcile"
	"pos-service/internal/util"
)

// Handler serves the terminal's HTTP surface: the checkout flow, the pending
// queue, sync control and operator notices.
type Handler struct {
	checkout   *cart.Service
	reconciler *reconcile.Reconciler
	monitor    *connectivity.Monitor
	store      pending.Store
	board      *notice.Board
}

// NewHandler creates a new terminal HTTP handler
func NewHandler(
	checkout *cart.Service,
	reconciler *reconcile.Reconciler,
	monitor *connectivity.Monitor,
	store pending.Store,
	board *notice.Board,
) *Handler {
	return &Handler{
		checkout:   checkout,
		reconciler: reconciler,
		monitor:    monitor,
		store:      store,
		board:      board,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addItem)
		v1.DELETE("/cart/items/:id", h.removeItem)
		v1.PUT("/cart/customer", h.setCustomer)
		v1.POST("/checkout", h.completeSale)
		v1.POST("/cart/reset", h.startNewSale)

		v1.GET("/pending", h.listPending)
		v1.GET("/pending/failed", h.listFailed)
		v1.POST("/pending/failed/:id/requeue", h.requeueFailed)
		v1.DELETE("/pending/failed/:id", h.dismissFailed)

		v1.POST("/sync", h.triggerSync)
		v1.GET("/connectivity", h.getConnectivity)
		v1.PUT("/connectivity", h.setConnectivity)

		v1.GET("/notices", h.getNotices)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) getCart(c *gin.Context) {
	active := h.checkout.Cart()
	c.JSON(http.StatusOK, gin.H{
		"state":    active.State(),
		"items":    active.Items(),
		"customer": active.Customer(),
		"subtotal": active.Subtotal(),
	})
}

type addItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.checkout.AddItem(c.Request.Context(), req.ItemID, req.Quantity)
	if err != nil {
		var sle *cart.StockLimitError
		switch {
		case errors.As(err, &sle):
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Stock limit reached",
				"details":   err.Error(),
				"available": sle.Stock,
				"in_cart":   sle.InCart,
			})
		case errors.Is(err, inventory.ErrUnknownItem):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Unknown item",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Could not add item",
				"details": err.Error(),
			})
		}
		return
	}
	h.getCart(c)
}

func (h *Handler) removeItem(c *gin.Context) {
	h.checkout.RemoveItem(c.Param("id"))
	h.getCart(c)
}

func (h *Handler) setCustomer(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.checkout.SetCustomer(customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Could not set customer",
			"details": err.Error(),
		})
		return
	}
	h.getCart(c)
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	Notes         string `json:"notes"`
}

func (h *Handler) completeSale(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	record, err := h.checkout.CompleteSale(c.Request.Context(), req.PaymentMethod, req.Notes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Could not complete sale",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bill_id": record.BillID,
		"total":   record.FinalAmount,
		"online":  h.monitor.Online(),
	})
}

func (h *Handler) startNewSale(c *gin.Context) {
	h.checkout.StartNewSale()
	h.getCart(c)
}

func (h *Handler) listPending(c *gin.Context) {
	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list pending sales",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": records, "count": len(records)})
}

func (h *Handler) listFailed(c *gin.Context) {
	failed, err := h.store.ListFailed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list failed sales",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failed": failed, "count": len(failed)})
}

func (h *Handler) requeueFailed(c *gin.Context) {
	err := h.store.Requeue(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pending.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "Could not requeue sale", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requeued"})
}

func (h *Handler) dismissFailed(c *gin.Context) {
	err := h.store.Dismiss(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pending.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "Could not dismiss sale", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}

// triggerSync starts a manual drain. Dropped when one is already running.
func (h *Handler) triggerSync(c *gin.Context) {
	if h.reconciler.Draining() {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		return
	}
	h.reconciler.TriggerDrain()
	c.JSON(http.StatusAccepted, gin.H{"status": "sync started"})
}

func (h *Handler) getConnectivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online":   h.monitor.Online(),
		"draining": h.reconciler.Draining(),
	})
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// setConnectivity applies a manual online/offline override
func (h *Handler) setConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	h.monitor.SetOnline(c.Request.Context(), *req.Online)
	h.getConnectivity(c)
}

func (h *Handler) getNotices(c *gin.Context) {
	n := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	c.JSON(http.StatusOK, gin.H{"notices": h.board.Recent(n)})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
