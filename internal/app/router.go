package app

import (
	"log"
	"net/http"
	"time"

	"wishlist/internal/config"
	"wishlist/internal/middleware"
	"wishlist/internal/model"
	"wishlist/internal/repository"
	"wishlist/internal/service"
	"wishlist/internal/util"
	"wishlist/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Services is everything the HTTP layer calls into
type Services struct {
	Auth         service.AuthService
	Profile      service.ProfileService
	Friendship   service.FriendshipService
	Notification service.NotificationService
	List         service.ListService
	Wish         service.WishService
}

func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.ServerPort == "5000" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(corsMiddleware(cfg.ClientURL))

	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	db, err := initDB(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	if err := db.AutoMigrate(&model.User{}, &model.Friendship{}, &model.Notification{}, &model.List{}, &model.Wish{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	redisClient := initRedisWithRetry(cfg)
	rabbitMQ := initRabbitMQWithRetry(cfg)

	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("WebSocket hub started")

	// Interfaces below stay nil when the backing client is missing. A nil
	// *RedisClient stored in an interface would not compare equal to nil.
	var cache service.CacheDeleter
	if redisClient != nil {
		cache = redisClient
	}

	var publisher service.Publisher
	if rabbitMQ != nil {
		worker := service.NewNotificationWorker(rabbitMQ, wsHub)
		if err := worker.Start(); err != nil {
			log.Printf("Warning: Failed to start notification worker: %v. Notifications will be pushed directly.", err)
		} else {
			log.Println("Notification worker started successfully")
			publisher = worker
		}
	} else {
		log.Println("Notification worker not started - notifications will be pushed directly to websocket clients")
	}

	var uploader service.ImageUploader
	if cfg.CloudinaryEnabled() {
		cloudinaryClient, err := util.NewCloudinaryClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v. Image uploads will be disabled.", err)
		} else {
			log.Println("Cloudinary initialized successfully")
			uploader = cloudinaryClient
		}
	} else {
		log.Println("Cloudinary credentials not configured. Image uploads will be disabled.")
	}

	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db, redisClient)
	notificationRepo := repository.NewNotificationRepository(db, redisClient)
	listRepo := repository.NewListRepository(db, redisClient)
	wishRepo := repository.NewWishRepository(db)
	transactor := repository.NewTransactor(db)

	invalidator := service.NewViewInvalidator(cache, wsHub)
	notificationService := service.NewNotificationService(notificationRepo, publisher, wsHub, invalidator)
	friendshipService := service.NewFriendshipService(friendshipRepo, userRepo, transactor, notificationService, invalidator)

	svc := Services{
		Auth:         service.NewAuthService(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour),
		Profile:      service.NewProfileService(userRepo, friendshipRepo, uploader, invalidator),
		Friendship:   friendshipService,
		Notification: notificationService,
		List:         service.NewListService(listRepo, userRepo, friendshipService, invalidator),
		Wish:         service.NewWishService(wishRepo, listRepo, uploader, invalidator),
	}

	RegisterRoutes(r, svc, cfg.JWTSecret)

	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWS(wsHub, cfg.JWTSecret).ServeHTTP(c.Writer, c.Request)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"websocket_clients": wsHub.GetTotalClientCount(),
		})
	})

	return r
}

// RegisterRoutes mounts the /api/v1 routes on r
func RegisterRoutes(r *gin.Engine, svc Services, jwtSecret string) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Friendship)
	profileHandler := NewProfileHandler(svc.Profile)
	friendshipHandler := NewFriendshipHandler(svc.Friendship, svc.List)
	notificationHandler := NewNotificationHandler(svc.Notification)
	listHandler := NewListHandler(svc.List)
	wishHandler := NewWishHandler(svc.Wish)

	authRequired := middleware.Auth(jwtSecret)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", authRequired, authHandler.GetMe)
		}

		users := api.Group("/users")
		users.Use(authRequired)
		{
			users.GET("/search", userHandler.SearchUsers)
		}

		profile := api.Group("/profile")
		profile.Use(authRequired)
		{
			profile.PUT("", profileHandler.UpdateProfile)
			profile.POST("/avatar", profileHandler.UploadAvatar)
		}

		friendships := api.Group("/friendships")
		friendships.Use(authRequired)
		{
			friendships.POST("/request", friendshipHandler.SendFriendRequest)
			friendships.GET("/pending", friendshipHandler.GetPendingRequests)
			friendships.GET("/friends", friendshipHandler.GetFriends)
			friendships.DELETE("/friends/:friendID", friendshipHandler.RemoveFriend)
			friendships.GET("/status/:userID", friendshipHandler.GetFriendshipStatus)
			friendships.POST("/:id/accept", friendshipHandler.AcceptFriendRequest)
			friendships.POST("/:id/decline", friendshipHandler.DeclineFriendRequest)
		}

		friends := api.Group("/friends")
		friends.Use(authRequired)
		{
			friends.GET("/:id", friendshipHandler.GetFriend)
			friends.GET("/:id/lists", friendshipHandler.GetFriendLists)
			friends.GET("/:id/lists/:listId", friendshipHandler.GetFriendList)
		}

		notifications := api.Group("/notifications")
		notifications.Use(authRequired)
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread/count", notificationHandler.GetUnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.DELETE("", notificationHandler.DeleteAll)
		}

		lists := api.Group("/lists")
		lists.Use(authRequired)
		{
			lists.GET("", listHandler.GetMyLists)
			lists.POST("", listHandler.CreateList)
			lists.GET("/:id", listHandler.GetList)
			lists.PUT("/:id", listHandler.UpdateList)
			lists.DELETE("/:id", listHandler.DeleteList)
			lists.POST("/:id/wishes", wishHandler.CreateWish)
		}

		wishes := api.Group("/wishes")
		wishes.Use(authRequired)
		{
			wishes.PUT("/:id", wishHandler.UpdateWish)
			wishes.DELETE("/:id", wishHandler.DeleteWish)
			wishes.POST("/:id/fulfilled", wishHandler.ToggleFulfilled)
			wishes.POST("/:id/image", wishHandler.UploadImage)
		}

		public := api.Group("/public")
		{
			public.GET("/lists/:id", listHandler.GetPublicList)
		}
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential backoff retry
func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	if cfg.RabbitMQURL == "" {
		log.Println("RABBITMQ_URL not set. Notification queue disabled.")
		return nil
	}

	var rabbitMQ *util.RabbitMQClient
	err := withRetry("RabbitMQ", func() error {
		var err error
		rabbitMQ, err = util.NewRabbitMQClient(cfg)
		return err
	})
	if err != nil {
		log.Printf("Warning: Failed to connect to RabbitMQ: %v. Notifications will be pushed directly.", err)
		return nil
	}
	return rabbitMQ
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff retry
func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	var redisClient *util.RedisClient
	err := withRetry("Redis", func() error {
		var err error
		redisClient, err = util.NewRedisClient(cfg)
		return err
	})
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching will be disabled.", err)
		return nil
	}
	return redisClient
}

// withRetry calls connect up to maxRetries times, doubling the delay between
// attempts up to maxDelay
func withRetry(name string, connect func() error) error {
	const (
		maxRetries   = 10
		initialDelay = 2 * time.Second
		maxDelay     = 30 * time.Second
	)

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = connect(); err == nil {
			log.Printf("%s connected successfully on attempt %d", name, attempt)
			return nil
		}

		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to %s (attempt %d/%d): %v. Retrying in %v...", name, attempt, maxRetries, err, delay)
			time.Sleep(delay)
		}
	}

	return err
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	allowedOrigins := []string{
		clientURL,
		"http://localhost:3000",
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
