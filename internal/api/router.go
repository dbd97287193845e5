package api

import (
	"time" // Token lifetime

	"social_network/internal/domain"     // Importing domain models
	"social_network/internal/ledger"     // Wallet ledger
	"social_network/internal/metrics"    // Prometheus instrumentation
	"social_network/internal/middleware" // Custom package for middleware
	"social_network/internal/realtime"   // Websocket push
	"social_network/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps are the shared handles injected into every handler
type Deps struct {
	DB        *gorm.DB                // Single pooled connection
	Ledger    *ledger.Service         // Wallet ledger
	Cache     *utils.Cache            // Read cache, may be disabled
	Hub       *realtime.Hub           // Live message push
	Limiter   *middleware.RateLimiter // Per-client limiter, nil disables
	JWTSecret string                  // HMAC secret
	JWTTTL    time.Duration           // Token lifetime
}

// NewRouter wires every route onto a new gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(metrics.Middleware())

	// Limits auth and money routes when configured
	limit := func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limit = d.Limiter.Handler()
	}
	auth := middleware.JWTAuthMiddleware(d.JWTSecret)
	optional := middleware.OptionalJWTMiddleware(d.JWTSecret)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", HealthHandler(d.DB, d.Cache))

	api := r.Group("/api")

	// User routes
	users := api.Group("/users")
	users.POST("", limit, RegisterHandler(d.DB, d.Cache))                 // Registration endpoint
	users.POST("/login", limit, LoginHandler(d.DB, d.JWTSecret, d.JWTTTL)) // Login endpoint
	users.GET("", ListUsersHandler(d.DB))
	users.GET("/:id", GetUserHandler(d.DB))
	users.GET("/:id/wallet", GetUserWalletHandler(d.Ledger))
	users.PUT("/:id", auth, UpdateUserHandler(d.DB))
	users.DELETE("/:id", auth, DeleteUserHandler(d.DB, d.Cache))

	// Post, comment and like routes
	posts := api.Group("/posts")
	posts.GET("", optional, ListPostsHandler(d.DB))
	posts.POST("", auth, CreatePostHandler(d.DB))
	posts.GET("/:id", optional, GetPostHandler(d.DB))
	posts.PUT("/:id", auth, UpdatePostHandler(d.DB))
	posts.DELETE("/:id", auth, DeletePostHandler(d.DB))
	posts.POST("/:id/like", auth, TogglePostLikeHandler(d.DB))
	posts.GET("/:id/comments", optional, ListCommentsHandler(d.DB))
	posts.POST("/:id/comments", auth, CreateCommentHandler(d.DB))
	posts.DELETE("/:id/comments/:commentId", auth, DeleteCommentHandler(d.DB))
	posts.POST("/:id/comments/:commentId/like", auth, ToggleCommentLikeHandler(d.DB))

	// Messaging routes
	messages := api.Group("/messages", auth)
	messages.POST("", SendMessageHandler(d.DB, d.Hub))
	messages.GET("", ListMessagesHandler(d.DB))
	messages.GET("/conversations", ConversationsHandler(d.DB))
	messages.GET("/with/:userId", ThreadHandler(d.DB))
	messages.DELETE("/:id", DeleteMessageHandler(d.DB))
	if d.Hub != nil {
		// Outside the group: the token may come from the query string here only
		api.GET("/messages/ws", middleware.WebsocketAuthMiddleware(d.JWTSecret), MessageSocketHandler(d.Hub))
	}

	// Friend routes
	friends := api.Group("/friends", auth)
	friends.GET("", ListFriendsHandler(d.DB))
	friends.DELETE("/:userId", UnfriendHandler(d.DB))
	friends.POST("/requests", SendFriendRequestHandler(d.DB))
	friends.GET("/requests", ListFriendRequestsHandler(d.DB))
	friends.POST("/requests/:id/accept", RespondFriendRequestHandler(d.DB, domain.FriendAccepted))
	friends.POST("/requests/:id/refuse", RespondFriendRequestHandler(d.DB, domain.FriendRefused))

	// Wallet routes
	wallets := api.Group("/wallets")
	wallets.POST("", CreateWalletHandler(d.Ledger, d.Cache))
	wallets.POST("/add-balance", limit, AddBalanceHandler(d.Ledger, d.Cache))
	wallets.POST("/transfer", limit, TransferHandler(d.Ledger, d.Cache))
	wallets.GET("/:walletId/stats", WalletStatsHandler(d.Ledger, d.Cache))
	wallets.GET("/:walletId/transactions", WalletTransactionsHandler(d.Ledger, d.Cache))
	api.POST("/crypto/transfer", limit, TransferHandler(d.Ledger, d.Cache)) // Legacy alias

	// Admin routes (admin session only)
	r.POST("/admin/login", limit, AdminLoginHandler(d.DB, d.JWTSecret, d.JWTTTL))
	admin := r.Group("/admin", middleware.AdminSessionMiddleware(d.DB, d.JWTSecret))
	admin.GET("/users", AdminListUsersHandler(d.DB, d.Cache))
	admin.DELETE("/users/:id", AdminDeleteUserHandler(d.DB, d.Cache))
	admin.GET("/posts", AdminListPostsHandler(d.DB))
	admin.DELETE("/posts/:id", AdminDeletePostHandler(d.DB))
	admin.GET("/transactions", AdminListTransactionsHandler(d.DB, d.Cache))
	admin.GET("/stats", AdminStatsHandler(d.DB))

	return r
}
