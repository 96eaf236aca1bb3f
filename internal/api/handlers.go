package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"table-orders/internal/metrics"
	"table-orders/internal/models"
	"table-orders/internal/order"
	"table-orders/internal/store"
)

// getMenu returns the full catalog: categories plus all menu items.
func (s *Server) getMenu(c *gin.Context) {
	categories, err := s.catalog.ListCategories(c.Request.Context())
	if err != nil {
		s.storeFailure(c, "menu_load_failed", err)
		return
	}
	items, err := s.catalog.ListMenuItems(c.Request.Context())
	if err != nil {
		s.storeFailure(c, "menu_load_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"items":      items,
	})
}

type cartItemRequest struct {
	ItemID          string                  `json:"item_id" binding:"required"`
	Quantity        int                     `json:"quantity"`
	SelectedOptions []models.SelectedOption `json:"selected_options"`
}

// getCart returns the device's cart with the transient "item added" notice
// if one is still within its display window.
func (s *Server) getCart(c *gin.Context) {
	deviceCart := s.carts.Get(deviceID(c))

	resp := gin.H{
		"items":          deviceCart.Items(),
		"total":          deviceCart.Total(),
		"total_quantity": deviceCart.TotalQuantity(),
	}
	if notice, ok := deviceCart.ActiveNotice(time.Now()); ok {
		resp["notice"] = notice
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.menuItem(c, req.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
			return
		}
		s.storeFailure(c, "menu_load_failed", err)
		return
	}

	s.carts.Get(deviceID(c)).AddItem(*item, req.SelectedOptions)
	s.getCart(c)
}

func (s *Server) setCartQuantity(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.carts.Get(deviceID(c)).SetQuantity(req.ItemID, req.Quantity, req.SelectedOptions)
	s.getCart(c)
}

func (s *Server) removeCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.carts.Get(deviceID(c)).RemoveItem(req.ItemID, req.SelectedOptions)
	s.getCart(c)
}

func (s *Server) clearCart(c *gin.Context) {
	s.carts.Get(deviceID(c)).Clear()
	c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}, "total": 0, "total_quantity": 0})
}

// getTable resolves the device's table number. A ?table= query parameter
// wins over the persisted binding and rebinds the device to that table.
func (s *Server) getTable(c *gin.Context) {
	table, err := s.binding.Resolve(c.Request.Context(), deviceID(c), c.Query("table"))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.storeFailure(c, "table_resolve_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"table_number": table, "bound": table > 0})
}

type bindTableRequest struct {
	TableNumber int `json:"table_number" binding:"required"`
}

func (s *Server) bindTable(c *gin.Context) {
	var req bindTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.binding.Bind(c.Request.Context(), deviceID(c), req.TableNumber); err != nil {
		var verr *models.ValidationError
		var partial *models.PartialBatchError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		case errors.As(err, &partial):
			// Binding persisted; some pending orders kept their old table.
		default:
			s.storeFailure(c, "table_bind_failed", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"table_number": req.TableNumber, "bound": true})
}

// submitOrder freezes the cart into a new pending order. The created order
// is inserted into the device's feed optimistically so it shows up before
// the store's own snapshot arrives.
func (s *Server) submitOrder(c *gin.Context) {
	success := false
	defer func() { metrics.RecordOrderOperation("submit", success) }()

	created, err := s.orders.Submit(c.Request.Context(), deviceID(c), requestID(c))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrSubmitInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "a submission is already in flight"})
		default:
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			s.storeFailure(c, "order_submit_failed", err)
		}
		return
	}

	if reconciler, err := s.feeds.Attach(deviceID(c)); err == nil {
		reconciler.OptimisticInsert(*created)
	} else {
		s.logger.Error("feed_attach_failed", "Could not attach order feed", requestID(c), err, nil)
	}

	success = true
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.orders.Orders(c.Request.Context(), deviceID(c))
	if err != nil {
		s.storeFailure(c, "order_list_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) getOrder(c *gin.Context) {
	found, err := s.orders.GetOrder(c.Request.Context(), deviceID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.storeFailure(c, "order_get_failed", err)
		return
	}

	c.JSON(http.StatusOK, found)
}

// getReceipt renders the plain-text receipt. Receipts exist only for
// settled payments; an unpaid order has nothing to print yet.
func (s *Server) getReceipt(c *gin.Context) {
	found, err := s.orders.GetOrder(c.Request.Context(), deviceID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		s.storeFailure(c, "order_get_failed", err)
		return
	}

	if found.PaymentStatus != models.PaymentPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "receipt is available once the order is paid"})
		return
	}

	c.String(http.StatusOK, order.Receipt(found))
}

type cancelRequest struct {
	Confirmed bool `json:"confirmed"`
}

// cancelOrder is a two step action: the first call without confirmed=true
// answers with requires_confirmation and writes nothing.
func (s *Server) cancelOrder(c *gin.Context) {
	success := false
	defer func() { metrics.RecordOrderOperation("cancel", success) }()

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := s.orders.Cancel(c.Request.Context(), deviceID(c), c.Param("id"), requestID(c), req.Confirmed)
	switch {
	case err == nil:
		success = true
		c.JSON(http.StatusOK, gin.H{"status": models.StatusCancelled})
	case errors.Is(err, order.ErrConfirmationRequired):
		c.JSON(http.StatusOK, gin.H{"requires_confirmation": true})
	case errors.Is(err, order.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		s.storeFailure(c, "order_cancel_failed", err)
	}
}

type paymentRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	PaymentProof  string `json:"payment_proof"`
}

func (s *Server) submitPayment(c *gin.Context) {
	success := false
	defer func() { metrics.RecordOrderOperation("payment", success) }()

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.orders.SubmitPayment(c.Request.Context(), deviceID(c), c.Param("id"), requestID(c),
		models.PaymentMethod(req.PaymentMethod), req.PaymentProof)
	switch {
	case err == nil:
		success = true
		c.JSON(http.StatusOK, gin.H{"payment_status": models.PaymentPaid})
	case errors.Is(err, order.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "order is already paid"})
	case errors.Is(err, order.ErrPaymentInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a payment is already being processed"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.storeFailure(c, "payment_failed", err)
	}
}

func (s *Server) getGCashPayee(c *gin.Context) {
	payee, err := s.orders.GCashPayee(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payee details not configured"})
			return
		}
		s.storeFailure(c, "payee_load_failed", err)
		return
	}

	c.JSON(http.StatusOK, payee)
}

// menuItem finds one catalog item by id.
func (s *Server) menuItem(c *gin.Context, itemID string) (*models.MenuItem, error) {
	items, err := s.catalog.ListMenuItems(c.Request.Context())
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// storeFailure answers a backend failure without leaking internals.
func (s *Server) storeFailure(c *gin.Context, action string, err error) {
	s.logger.Error(action, "Backend operation failed", requestID(c), err, nil)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
}
