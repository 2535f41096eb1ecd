package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pos-service/internal/models"
)

// Handler serves the ledger's HTTP surface
type Handler struct {
	service *Service
	token   string
}

// NewHandler creates a new ledger HTTP handler
func NewHandler(service *Service, token string) *Handler {
	return &Handler{service: service, token: token}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.authMiddleware())
	{
		v1.POST("/sales", h.recordSale)
		v1.GET("/inventory", h.getInventory)
		v1.GET("/reports/daily", h.getDailyReport)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// authMiddleware rejects requests without the configured bearer token. An
// empty configured token disables the check (dev mode).
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+h.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing token",
			})
			return
		}
		c.Next()
	}
}

// recordSale handles the transactional sale submission
func (h *Handler) recordSale(c *gin.Context) {
	var rec models.SaleRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := ValidateSubmission(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid sale",
			"details": err.Error(),
		})
		return
	}

	sale, duplicate, err := h.service.RecordSale(c.Request.Context(), &rec)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrUnknownItem) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Sale rejected",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to record sale",
			"details": err.Error(),
		})
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, models.SubmitResponse{
		SaleID:    sale.ID,
		Duplicate: duplicate,
	})
}

// getInventory serves the stock snapshot terminals validate carts against
func (h *Handler) getInventory(c *gin.Context) {
	levels, err := h.service.GetStockLevels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load inventory",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, levels)
}

// getDailyReport serves the rollups maintained by the reporting worker
func (h *Handler) getDailyReport(c *gin.Context) {
	now := time.Now()
	from, to := now.AddDate(0, 0, -30), now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
			return
		}
		to = parsed
	}

	rollups, err := h.service.GetDailySales(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load report",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"daily_sales": rollups})
}
