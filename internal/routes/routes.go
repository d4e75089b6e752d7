package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/audit"
	"shop_back_end/internal/handlers"
	"shop_back_end/internal/metrics"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
	"shop_back_end/internal/store"
)

// Deps are the handles the HTTP surface needs. Limiter, Events and Audit
// may be nil.
type Deps struct {
	Store     store.Store
	Cart      *services.CartService
	Checkout  *services.CheckoutService
	Orders    *services.OrderService
	Catalog   *services.CatalogService
	Auth      *services.AuthService
	JWTSecret []byte

	Limiter   middleware.Limiter
	Events    handlers.CartSubscriber
	Audit     audit.Recorder
	Metrics   *metrics.Metrics
	WSOrigins []string
	Logger    *slog.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var rec audit.Recorder = audit.NewLogRecorder(logger)
	if d.Audit != nil {
		rec = d.Audit
	}

	auth := middleware.AuthRequired(d.JWTSecret)
	admin := middleware.RequireAdmin()

	cartH := handlers.NewCartHandler(d.Cart, d.Checkout, logger)
	orderH := handlers.NewOrderHandler(d.Orders, logger)
	authH := handlers.NewAuthHandler(d.Auth, logger)
	userH := handlers.NewUserHandler(d.Auth, logger)
	productH := handlers.NewProductHandler(d.Catalog, logger)

	r.GET("/healthz", handlers.Health(d.Store))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login",
			middleware.LoginRateLimit(d.Limiter),
			middleware.AuditAction(rec, audit.ActionLogin, audit.ResourceAuth),
			authH.Login)
	}

	cart := r.Group("/cart", auth)
	{
		cart.GET("", cartH.GetCart)
		cart.POST("/add", middleware.CartRateLimit(d.Limiter), cartH.AddItem)
		cart.PUT("/update", cartH.UpdateItem)
		cart.DELETE("/remove", cartH.RemoveItem)
		cart.DELETE("/clear", cartH.ClearCart)
		cart.POST("/checkout",
			middleware.AuditAction(rec, audit.ActionOrderCreate, audit.ResourceOrder),
			cartH.Checkout)
		if d.Events != nil {
			feed := handlers.NewCartFeed(d.Cart, d.Events, d.WSOrigins, logger)
			cart.GET("/ws", feed.Serve)
		}
	}

	orders := r.Group("/orders", auth)
	{
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)
		orders.DELETE("/:id",
			middleware.AuditAction(rec, audit.ActionOrderDelete, audit.ResourceOrder),
			orderH.DeleteOrder)
	}

	users := r.Group("/users", auth)
	{
		users.GET("/me", userH.Me)
		users.GET("", admin, userH.ListUsers)
		users.GET("/:id", userH.GetUser)
		users.PUT("/:id", userH.UpdateUser)
	}

	products := r.Group("/products")
	{
		products.GET("", productH.ListProducts)
		products.GET("/:id", productH.GetProduct)
		products.POST("", auth, admin,
			middleware.AuditAction(rec, audit.ActionProductCreate, audit.ResourceProduct),
			productH.CreateProduct)
		products.PUT("/:id", auth, admin,
			middleware.AuditAction(rec, audit.ActionProductUpdate, audit.ResourceProduct),
			productH.UpdateProduct)
		products.DELETE("/:id", auth, admin,
			middleware.AuditAction(rec, audit.ActionProductDelete, audit.ResourceProduct),
			productH.DeleteProduct)
	}
}
