package router

import (
	"net/http"
	"strings"

	"reviewhub/config"
	"reviewhub/internal/domain"
	"reviewhub/internal/handler"
	"reviewhub/internal/middleware"
	"reviewhub/internal/ratelimit"
	"reviewhub/internal/repository"
	"reviewhub/internal/service"
	"reviewhub/internal/ws"
	"reviewhub/pkg/cloudinary"
	"reviewhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services is the wired service graph shared by the HTTP layer and the scheduler.
type Services struct {
	Settings       *service.SettingsService
	Notifications  *service.NotificationService
	Gamification   *service.GamificationService
	Competitions   *service.CompetitionService
	Referrals      *service.ReferralService
	Tasks          *service.TaskService
	ReviewRequests *service.ReviewRequestService
	Chat           *service.ChatService
	DeepLinks      *service.DeepLinkService
	Auth           *service.AuthService
	Profile        *service.ProfileService
	Admin          *service.AdminService

	Hub     *ws.Hub
	ChatHub *ws.ChatHub
}

// NewServices builds repositories and services over db. Listeners are
// registered before any request can award points.
func NewServices(cfg *config.Config, db *gorm.DB) *Services {
	users := repository.NewUserRepository(db)
	points := repository.NewPointsRepository(db)
	badges := repository.NewBadgeRepository(db)
	tasks := repository.NewTaskRepository(db)
	refs := repository.NewReferralRepository(db)
	wallet := repository.NewWalletRepository(db)
	requests := repository.NewReviewRequestRepository(db)
	payments := repository.NewPaymentRepository(db)

	s := &Services{Hub: ws.NewHub(), ChatHub: ws.NewChatHub()}
	loc := cfg.App.Location()

	s.Settings = service.NewSettingsService(repository.NewSettingRepository(db), cfg.App.SettingsTTL)
	s.Notifications = service.NewNotificationService(repository.NewNotificationRepository(db), s.Hub)

	s.Gamification = service.NewGamificationService(db, users, points, badges, tasks, refs, s.Settings, s.Notifications, loc)
	s.Competitions = service.NewCompetitionService(db, repository.NewCompetitionRepository(db), s.Notifications)
	s.Gamification.AddListener(s.Competitions)

	s.Referrals = service.NewReferralService(db, users, refs, wallet, s.Settings, s.Gamification, s.Notifications)
	s.Referrals.AddListener(s.Competitions)

	s.Tasks = service.NewTaskService(db, tasks, requests, wallet, s.Settings, s.Gamification, s.Referrals, s.Competitions, s.Notifications)
	s.ReviewRequests = service.NewReviewRequestService(db, requests, payments, wallet, newGateway(&cfg.Payment), s.Settings, s.Notifications, cfg.Payment.Currency)

	s.Chat = service.NewChatService(repository.NewChatRepository(db), s.ChatHub, s.Notifications)
	s.DeepLinks = service.NewDeepLinkService(db, repository.NewDeepLinkRepository(db), cfg.App.BaseURL, loc)

	s.Auth = service.NewAuthService(cfg, users, s.Referrals, s.Gamification)
	s.Profile = service.NewProfileService(users, wallet, s.Gamification)
	s.Admin = service.NewAdminService(repository.NewAdminRepository(db), repository.NewAuditLogRepository(db), users, s.Settings, s.Gamification)
	return s
}

func newGateway(cfg *config.PaymentConfig) payment.Gateway {
	if strings.EqualFold(cfg.Provider, "razorpay") {
		return payment.NewRazorpayGateway(cfg.BaseURL, cfg.KeyID, cfg.KeySecret, cfg.WebhookSecret)
	}
	log.Warn().Str("component", "payment").Str("provider", cfg.Provider).Msg("using stub payment gateway")
	return payment.NewStubGateway(cfg.KeySecret, cfg.WebhookSecret)
}

// Setup mounts every route and wraps the engine in CORS. cloud may be nil.
func Setup(cfg *config.Config, db *gorm.DB, s *Services, cloud cloudinary.Client, limiter *ratelimit.Limiter) http.Handler {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	authHandler := handler.NewAuthHandler(s.Auth, s.Admin)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, s.Auth, s.Referrals, s.Admin)
	meHandler := handler.NewMeHandler(s.Profile)
	walletHandler := handler.NewWalletHandler(s.Profile)
	uploadHandler := handler.NewUploadHandler(cloud, &cfg.Cloudinary)
	notificationHandler := handler.NewNotificationHandler(s.Notifications)
	referralHandler := handler.NewReferralHandler(s.Referrals)
	gamificationHandler := handler.NewGamificationHandler(s.Gamification)
	taskHandler := handler.NewTaskHandler(s.Tasks, s.ReviewRequests)
	reviewRequestHandler := handler.NewReviewRequestHandler(s.ReviewRequests)
	competitionHandler := handler.NewCompetitionHandler(s.Competitions, s.Admin)
	deepLinkHandler := handler.NewDeepLinkHandler(s.DeepLinks)
	chatHandler := handler.NewChatHandler(s.Chat)
	adminHandler := handler.NewAdminHandler(s.Admin, s.Tasks)

	rl := cfg.RateLimit
	authMw := middleware.AuthRequired(&cfg.JWT)
	sellerOnly := middleware.RequireRole(domain.RoleSeller)
	deepLinkLimit := middleware.RateLimit(limiter, "deep_link", rl.DeepLink)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/l/:code", deepLinkLimit, deepLinkHandler.Redirect)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter, "default", rl.Default))
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RateLimit(limiter, "auth", rl.Auth))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.GetProfile)
			me.PATCH("/profile", meHandler.UpdateProfile)
			me.POST("/upload", uploadHandler.Upload)
			me.GET("/wallet", walletHandler.GetBalance)
			me.GET("/wallet/transactions", walletHandler.GetTransactions)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)

			me.GET("/referral-code", referralHandler.GetCode)
			me.POST("/referral/claim", referralHandler.Claim)
			me.GET("/referrals", referralHandler.List)
			me.GET("/referrals/stats", referralHandler.Stats)
			me.GET("/referrals/earnings", referralHandler.Earnings)

			me.GET("/points", gamificationHandler.Points)
			me.GET("/points/history", gamificationHandler.History)
			me.GET("/badges", gamificationHandler.MyBadges)
			me.GET("/rank", gamificationHandler.Rank)

			me.GET("/tasks", taskHandler.ListMine)
			me.GET("/review-requests", sellerOnly, reviewRequestHandler.ListMine)
			me.GET("/competitions", competitionHandler.ListMine)
			me.GET("/deep-links", deepLinkHandler.ListMine)
		}

		api.GET("/badges", gamificationHandler.Badges)
		api.GET("/levels", gamificationHandler.Levels)
		api.GET("/leaderboard", gamificationHandler.Leaderboard)

		api.GET("/tasks/available", authMw, taskHandler.Available)
		api.GET("/tasks/:id", authMw, taskHandler.Get)
		api.POST("/tasks/:id/steps/:step", authMw, middleware.RateLimit(limiter, "step_submit", rl.StepSubmits), taskHandler.SubmitStep)
		api.POST("/review-requests/:id/claim", authMw, taskHandler.Claim)

		api.POST("/review-requests", authMw, sellerOnly, reviewRequestHandler.Create)
		api.POST("/payments/verify", authMw, sellerOnly, reviewRequestHandler.VerifyPayment)
		api.POST("/webhooks/payment", reviewRequestHandler.Webhook)

		api.GET("/competitions", competitionHandler.ListActive)
		api.POST("/competitions/:id/join", authMw, competitionHandler.Join)
		api.GET("/competitions/:id/leaderboard", competitionHandler.Leaderboard)

		links := api.Group("/deep-links")
		{
			links.POST("/create", authMw, deepLinkHandler.Create)
			links.GET("/resolve/:code", deepLinkLimit, deepLinkHandler.Resolve)
			links.GET("/analytics/:id", authMw, deepLinkHandler.Analytics)
		}

		chat := api.Group("/chat")
		chat.Use(authMw)
		{
			chat.GET("/conversations", chatHandler.ListConversations)
			chat.POST("/conversations", chatHandler.OpenConversation)
			chat.GET("/conversations/:id/messages", chatHandler.GetMessages)
			chat.POST("/conversations/:id/messages", chatHandler.SendMessage)
			chat.POST("/conversations/:id/close", chatHandler.Close)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/users", adminHandler.Users)
			admin.PATCH("/users/:id/kyc", adminHandler.SetKYC)
			admin.GET("/tasks/refund-requests", adminHandler.RefundRequests)
			admin.POST("/tasks/:id/complete", adminHandler.CompleteTask)
			admin.POST("/tasks/:id/reject", adminHandler.RejectRefund)
			admin.GET("/audit-log", adminHandler.AuditLog)
			admin.POST("/competitions", competitionHandler.Create)
			admin.POST("/competitions/:id/recompute", competitionHandler.Recompute)
		}
	}

	r.GET("/ws/notifications", ws.ServeNotifications(&cfg.JWT, s.Hub))
	r.GET("/ws/chat", handler.UpgradeChatWS(&cfg.JWT, s.ChatHub, s.Chat))

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}).Handler(r)
}
