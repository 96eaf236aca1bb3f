package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"table-orders/internal/cart"
	"table-orders/internal/config"
	"table-orders/internal/feed"
	"table-orders/internal/logger"
	"table-orders/internal/metrics"
	"table-orders/internal/order"
	"table-orders/internal/session"
	"table-orders/internal/store"
)

// Server wires the customer-facing HTTP API
type Server struct {
	cfg     *config.Config
	logger  *logger.Logger
	orders  *order.Service
	carts   *cart.Manager
	catalog store.CatalogStore
	binding *session.Binding
	feeds   *feed.Manager
}

// NewServer creates the API server
func NewServer(cfg *config.Config, log *logger.Logger, orders *order.Service, carts *cart.Manager, catalog store.CatalogStore, binding *session.Binding, feeds *feed.Manager) *Server {
	return &Server{
		cfg:     cfg,
		logger:  log,
		orders:  orders,
		carts:   carts,
		catalog: catalog,
		binding: binding,
		feeds:   feeds,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(s.deviceIdentity())
	{
		api.GET("/menu", s.getMenu)

		api.GET("/cart", s.getCart)
		api.POST("/cart/items", s.addCartItem)
		api.PUT("/cart/items", s.setCartQuantity)
		api.DELETE("/cart/items", s.removeCartItem)
		api.DELETE("/cart", s.clearCart)

		api.GET("/table", s.getTable)
		api.POST("/table", s.bindTable)

		api.POST("/orders", s.submitOrder)
		api.GET("/orders", s.listOrders)
		api.GET("/orders/feed", s.orderFeed)
		api.GET("/orders/:id", s.getOrder)
		api.GET("/orders/:id/receipt", s.getReceipt)
		api.POST("/orders/:id/cancel", s.cancelOrder)
		api.POST("/orders/:id/payment", s.submitPayment)

		api.GET("/payments/gcash-payee", s.getGCashPayee)
	}

	return r
}
