package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	wishlist *service.WishlistService
	accounts *service.AccountService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	wishlist *service.WishlistService,
	accounts *service.AccountService,
) *Handler {
	return &Handler{
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		wishlist: wishlist,
		accounts: accounts,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/home", optionalAuth(h.accounts), h.home)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.productDetail)
		v1.GET("/categories", h.listCategories)

		authed := v1.Group("", requireAuth(h.accounts))
		{
			authed.POST("/auth/logout", h.logout)
			authed.GET("/profile", h.getProfile)
			authed.PUT("/profile", h.completeProfile)

			authed.GET("/cart", h.getCart)
			authed.POST("/cart/items", h.addToCart)
			authed.DELETE("/cart/items/:id", h.removeFromCart)

			authed.POST("/checkout", h.placeOrder)
			authed.GET("/orders", h.listOrders)
			authed.GET("/orders/:id", h.getOrder)

			authed.POST("/wishlist/toggle", h.toggleWishlist)
			authed.GET("/wishlist", h.listWishlist)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	FirstName       string `json:"first_name"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// register handles account creation
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.FirstName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "redirect": "login"})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login verifies credentials and returns a session token. profile_pending
// tells the client to send the user to profile completion first.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	redirect := "home"
	if result.ProfilePending {
		redirect = "profile"
	}

	c.JSON(http.StatusOK, gin.H{
		"token":           result.Token,
		"user":            result.User,
		"profile_pending": result.ProfilePending,
		"redirect":        redirect,
	})
}

// logout deletes the current session
func (h *Handler) logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "login"})
}

// getProfile returns the customer profile
func (h *Handler) getProfile(c *gin.Context) {
	customer, err := h.accounts.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": customer})
}

type completeProfileRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// completeProfile saves the required fields and flips the one-way flag
func (h *Handler) completeProfile(c *gin.Context) {
	var req completeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	err := h.accounts.CompleteProfile(c.Request.Context(), currentUser(c), req.Phone, req.Address)
	if err != nil {
		if errors.Is(err, service.ErrProfileAlreadyCompleted) {
			c.JSON(http.StatusConflict, gin.H{
				"error":    "Profile already completed",
				"redirect": "home",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect": "home"})
}

// home returns the landing page data
func (h *Handler) home(c *gin.Context) {
	view, err := h.catalog.Home(c.Request.Context(), c.Query("q"), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load home"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// listProducts returns one page of filtered products
func (h *Handler) listProducts(c *gin.Context) {
	categoryID, _ := strconv.ParseInt(c.Query("category"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.catalog.ListProducts(c.Request.Context(), c.Query("search"), categoryID, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// productDetail returns a product, counting the view
func (h *Handler) productDetail(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.catalog.GetProductDetail(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// listCategories returns all categories
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// getCart returns the user's cart with its total
func (h *Handler) getCart(c *gin.Context) {
	summary, err := h.cart.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// addToCart creates or increments a cart line after the soft stock check
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, created, err := h.cart.AddToCart(c.Request.Context(), currentUser(c), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOutOfStock):
			c.JSON(http.StatusConflict, gin.H{"error": "Product is out of stock"})
		case errors.Is(err, service.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"line": line, "created": created, "redirect": "cart"})
}

// removeFromCart deletes a cart line; cross-user attempts are a no-op
func (h *Handler) removeFromCart(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart line ID"})
		return
	}

	if err := h.cart.RemoveFromCart(c.Request.Context(), currentUser(c), lineID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "cart"})
}

// placeOrder runs the checkout transaction and maps the three outcomes:
// success, empty cart, insufficient stock
func (h *Handler) placeOrder(c *gin.Context) {
	result, err := h.checkout.PlaceOrder(c.Request.Context(), currentUser(c))
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			c.JSON(http.StatusConflict, gin.H{
				"error":    "Cart is empty",
				"redirect": "cart",
			})
		case errors.As(err, &stockErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     "Insufficient stock",
				"shortages": stockErr.Shortages,
				"redirect":  "checkout",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":    result.Order,
		"items":    result.Items,
		"redirect": "order_success",
	})
}

// listOrders returns the user's order history
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkout.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns one of the user's orders with its items
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, items, err := h.checkout.GetOrder(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

type toggleWishlistRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// toggleWishlist flips wishlist membership and reports the action taken
func (h *Handler) toggleWishlist(c *gin.Context) {
	var req toggleWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	action, err := h.wishlist.Toggle(c.Request.Context(), currentUser(c), req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": action})
}

// listWishlist returns the user's wishlisted products
func (h *Handler) listWishlist(c *gin.Context) {
	products, err := h.wishlist.List(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
