package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

type Options struct {
	CORSOrigin string
	// RateLimitRPS caps authenticated API calls per client IP; 0 disables it.
	RateLimitRPS float64
	Hub          *kds.Hub
}

func SetupRouter(db *gorm.DB, svc *services.Services, opts Options) *gin.Engine {
	if opts.Hub == nil {
		opts.Hub = kds.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))

	userCtrl := controllers.NewUserController(db)
	customerCtrl := controllers.NewCustomerController(db)
	adminCtrl := controllers.NewAdminController(db, svc)
	menuCtrl := controllers.NewMenuController(svc)
	orderCtrl := controllers.NewOrderController(svc)
	tableCtrl := controllers.NewTableController(svc)
	paymentCtrl := controllers.NewPaymentController(svc)
	cashierCtrl := controllers.NewCashierController(svc)
	kdsCtrl := controllers.NewKDSController(svc, opts.Hub, opts.CORSOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/ws/kds", middlewares.AuthMiddleware(), kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	if opts.RateLimitRPS > 0 {
		burst := int(opts.RateLimitRPS * 2)
		if burst < 1 {
			burst = 1
		}
		api.Use(middlewares.NewRateLimiter(rate.Limit(opts.RateLimitRPS), burst).RateLimit())
	}

	api.GET("/profile", userCtrl.GetProfile)
	api.POST("/logout", userCtrl.Logout)
	api.GET("/products", menuCtrl.GetAllProducts)
	api.GET("/products/:product_id", menuCtrl.GetProductByID)
	api.GET("/categories", menuCtrl.GetAllCategories)

	floor := middlewares.RequireRoles(models.RoleGerente, models.RoleGarcom, models.RoleCaixa)
	kitchen := middlewares.RequireRoles(models.RoleGerente, models.RoleCozinha, models.RoleGarcom)
	cashier := middlewares.RequireRoles(models.RoleGerente, models.RoleCaixa)
	manager := middlewares.RequireRoles(models.RoleGerente)

	// KITCHEN
	api.GET("/kds/orders", kitchen, kdsCtrl.GetKitchenDisplay)
	api.PATCH("/order-items/:item_id/status", kitchen, kdsCtrl.UpdateItemStatus)

	// ORDERS
	orders := api.Group("/orders", floor)
	{
		orders.GET("", orderCtrl.GetAllOrders)
		orders.POST("", orderCtrl.CreateOrder)
		orders.GET("/:order_id", orderCtrl.GetOrderByID)
		orders.DELETE("/:order_id", manager, orderCtrl.DeleteOrder)
		orders.POST("/:order_id/items", orderCtrl.AddItem)
		orders.DELETE("/:order_id/items/:item_id", orderCtrl.RemoveItem)
		orders.PATCH("/:order_id/status", orderCtrl.UpdateOrderStatus)
		orders.GET("/:order_id/progress", orderCtrl.GetOrderProgress)
		orders.POST("/:order_id/transfer", orderCtrl.TransferOrder)
		orders.POST("/:order_id/duplicate", orderCtrl.DuplicateOrder)

		orders.GET("/:order_id/payments", paymentCtrl.GetOrderPayments)
		orders.POST("/:order_id/payments", cashier, paymentCtrl.CreatePayment)
		orders.POST("/:order_id/tip", paymentCtrl.ApplyTip)
		orders.GET("/:order_id/splits", paymentCtrl.GetSplits)
		orders.POST("/:order_id/splits", paymentCtrl.SplitOrder)
		orders.GET("/:order_id/bill.pdf", paymentCtrl.GetBill)
	}

	// PAYMENTS
	api.POST("/payments/:payment_id/confirm", cashier, paymentCtrl.ConfirmPayment)
	api.POST("/splits/:split_id/pay", cashier, paymentCtrl.PaySplit)

	// CASHIER
	register := api.Group("/cashier", cashier)
	{
		register.GET("/summary", cashierCtrl.GetDailySummary)
		register.GET("/operations", cashierCtrl.GetCashOperations)
		register.POST("/operations", manager, cashierCtrl.CreateCashOperation)
	}

	// TABLES
	tables := api.Group("/tables", floor)
	{
		tables.GET("", tableCtrl.GetAllTables)
		tables.POST("", manager, tableCtrl.CreateTable)
		tables.POST("/merge", tableCtrl.MergeTables)
		tables.GET("/:table_id", tableCtrl.GetTableByID)
		tables.POST("/:table_id/open", tableCtrl.OpenTable)
		tables.POST("/:table_id/close", tableCtrl.CloseTable)
	}
	groups := api.Group("/table-groups", floor)
	{
		groups.GET("", tableCtrl.GetGroups)
		groups.GET("/:group_id/history", tableCtrl.GetGroupHistory)
		groups.POST("/:group_id/split", tableCtrl.SplitGroup)
	}

	// CUSTOMERS
	customers := api.Group("/customers", floor)
	{
		customers.GET("", customerCtrl.GetAllCustomers)
		customers.POST("", customerCtrl.CreateCustomer)
		customers.GET("/:customer_id", customerCtrl.GetCustomerByID)
		customers.PUT("/:customer_id", customerCtrl.UpdateCustomer)
		customers.DELETE("/:customer_id", manager, customerCtrl.DeleteCustomer)
	}

	// ADMIN
	admin := api.Group("/admin", manager)
	{
		admin.GET("/dashboard", adminCtrl.GetDashboardStats)
		admin.GET("/users", userCtrl.GetAllUsers)
		admin.POST("/products", menuCtrl.CreateProduct)
		admin.PUT("/products/:product_id", menuCtrl.UpdateProduct)
		admin.POST("/categories", menuCtrl.CreateCategory)
		admin.GET("/service-charges", adminCtrl.GetPolicies)
		admin.POST("/service-charges", adminCtrl.CreatePolicy)
		admin.GET("/settings", adminCtrl.GetSettings)
		admin.PUT("/settings", adminCtrl.UpdateSettings)
		admin.GET("/audit", adminCtrl.GetAuditLogs)
	}

	return r
}
