package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/admin"
	"github.com/chisomo-dev/coachpay/internal/alerts"
	"github.com/chisomo-dev/coachpay/internal/auth"
	"github.com/chisomo-dev/coachpay/internal/config"
	"github.com/chisomo-dev/coachpay/internal/courses"
	"github.com/chisomo-dev/coachpay/internal/credits"
	"github.com/chisomo-dev/coachpay/internal/db"
	appmw "github.com/chisomo-dev/coachpay/internal/middleware"
	"github.com/chisomo-dev/coachpay/internal/user"
	"github.com/chisomo-dev/coachpay/internal/wallet"
	"github.com/chisomo-dev/coachpay/internal/withdraw"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load(logger)

	// Init subsystems
	db.Init()
	sink := alerts.Init(cfg.RedisAddr, cfg.Alerts, cfg.Withdrawal.BlockThreshold, logger)
	defer alerts.Close()

	// Withdrawal pipeline
	store := withdraw.NewPGStore(db.Conn)
	payouts := withdraw.NewClient(cfg.PayChangu, logger)
	svc := withdraw.NewService(cfg.Withdrawal, store, payouts, sink, logger)
	wh := withdraw.NewHandler(svc)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public routes
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.GET("/courses", courses.GetAllCourses)
	e.GET("/coach/:id/profile", user.GetPublicProfile)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	// Me and profile update
	g.GET("/me", auth.Me)
	g.PATCH("/user/profile", user.UpdateProfile)

	// Wallet
	g.GET("/wallet/balance", wallet.Balance)
	g.GET("/wallet/transactions", wallet.TransactionsHandler)

	// Credit purchases
	g.POST("/credits/purchase", credits.PurchaseInit)
	g.POST("/credits/purchase/:id/confirm", credits.ConfirmPurchase)

	// Courses and enrollments
	g.POST("/courses", courses.CreateCourse)
	g.GET("/courses/me", courses.GetMyCourses)
	g.POST("/courses/:id/enroll", credits.Enroll)

	// Withdrawals (coaches cash out earned credits)
	g.POST("/withdrawals", wh.Create, appmw.RequireRoles("coach", "admin"))
	g.GET("/withdrawals", wh.List)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/wallets", admin.ListWallets)
	adminGroup.GET("/withdrawals", admin.ListWithdrawals)
	adminGroup.GET("/transactions", wallet.AdminGetAllTransactions)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/users/:id/promote_coach", admin.PromoteCoach)
	adminGroup.POST("/users/:id/demote_coach", admin.DemoteCoach)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("API server listening", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
