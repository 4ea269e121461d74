package api

import (
	"net/http"

	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) changeUserStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.ChangeUserStatus(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Update Status Success"})
}

func (h *Handler) changeUserRole(c *gin.Context) {
	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.ChangeUserRole(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, "Update Role Success")
}

func (h *Handler) saveCart(c *gin.Context) {
	var req service.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.carts.BuildCart(c.Request.Context(), requestUser(c).ID, req.Cart); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, "Add Cart done")
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), requestUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) emptyCart(c *gin.Context) {
	deleted, err := h.carts.EmptyCart(c.Request.Context(), requestUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Cart Empty Success",
		"deletedCount": deleted,
	})
}

func (h *Handler) saveAddress(c *gin.Context) {
	var req service.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.carts.SaveAddress(c.Request.Context(), requestUser(c).ID, req.Address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Address update success"})
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), requestUser(c), *req.PaymentIntent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (h *Handler) getOrders(c *gin.Context) {
	orders, err := h.orders.GetOrders(c.Request.Context(), requestUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "orders": orders})
}

func (h *Handler) changeOrderStatus(c *gin.Context) {
	var req service.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.ChangeOrderStatus(c.Request.Context(), req.OrderID, req.OrderStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listAllOrders(c *gin.Context) {
	orders, err := h.orders.ListAllOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) orderFeed(c *gin.Context) {
	if h.feed == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"ok": false, "message": "Order feed unavailable"})
		return
	}

	// the upgrader has already answered the client when Serve fails
	if err := h.feed.Serve(c.Writer, c.Request); err != nil {
		util.GetLogger().Warn("Order feed upgrade failed",
			zap.Int64("user_id", requestUser(c).ID),
			zap.Error(err))
	}
}
