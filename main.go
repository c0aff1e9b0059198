package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecoQuestAPI/handlers"
	"ecoQuestAPI/internal/assistant"
	"ecoQuestAPI/internal/notification"
	"ecoQuestAPI/internal/progression"
	"ecoQuestAPI/internal/workers"
	"ecoQuestAPI/middleware"
	"ecoQuestAPI/services"
)

var (
	dbPool              *pgxpool.Pool
	missionService      *services.MissionService
	profileService      *services.ProfileService
	chatService         *services.ChatService
	envService          *services.EnvironmentalService
	communityService    *services.CommunityService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
	tracker             *progression.Tracker
	assistantProxy      *assistant.Proxy
	streakWorker        *workers.StreakWorker
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	missionService = services.NewMissionService(dbPool)
	profileService = services.NewProfileService(dbPool)
	chatService = services.NewChatService(dbPool)
	envService = services.NewEnvironmentalService(dbPool)
	communityService = services.NewCommunityService(dbPool)
	notificationService = services.NewNotificationService(dbPool)

	ledger := progression.NewPointsLedger(profileService)
	tracker = progression.NewTracker(missionService, missionService, ledger)
	tracker.SetNotifier(notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM push provider initialized successfully")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, assistant chat is disabled")
	} else {
		geminiClient, err := assistant.NewGeminiClient(context.Background(), geminiKey)
		if err != nil {
			log.Printf("Warning: Could not initialize Gemini client: %v", err)
		} else {
			assistantProxy = assistant.NewProxy(chatService, geminiClient)
			log.Println("Assistant proxy initialized successfully")
		}
	}

	streakWorker = workers.NewStreakWorker(dbPool)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	missionHandler := handlers.NewMissionHandler(missionService, tracker, profileService)
	profileHandler := handlers.NewProfileHandler(profileService)
	chatHandler := handlers.NewChatHandler(assistantProxy, profileService)
	envHandler := handlers.NewEnvironmentalHandler(envService)
	communityHandler := handlers.NewCommunityHandler(communityService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(profileService)

	if err := streakWorker.Start(); err != nil {
		log.Printf("Warning: could not start streak worker: %v", err)
	}
	defer streakWorker.Stop()

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "ecoQuest-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED API V1 ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/missions", missionHandler.ListMissions).Methods("GET")
	protected.HandleFunc("/missions/user", missionHandler.ListUserMissions).Methods("GET")
	protected.HandleFunc("/missions/{id}/start", missionHandler.StartMission).Methods("POST")
	protected.HandleFunc("/missions/{id}/progress", missionHandler.UpdateProgress).Methods("PUT")
	protected.HandleFunc("/missions/{id}/verification", missionHandler.SubmitVerification).Methods("POST")
	protected.HandleFunc("/missions/{id}/complete", missionHandler.CompleteMission).Methods("POST")

	protected.HandleFunc("/user", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", profileHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/leaderboard", profileHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/user/achievements", profileHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/user/achievements", profileHandler.UnlockAchievement).Methods("POST")

	protected.HandleFunc("/environmental-data", envHandler.ListDataPoints).Methods("GET")
	protected.HandleFunc("/environmental-data", envHandler.RecordDataPoint).Methods("POST")

	protected.HandleFunc("/community/posts", communityHandler.ListPosts).Methods("GET")
	protected.HandleFunc("/community/posts", communityHandler.CreatePost).Methods("POST")
	protected.HandleFunc("/community/posts/{id}/like", communityHandler.ToggleLike).Methods("POST")
	protected.HandleFunc("/community/groups", communityHandler.ListGroups).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	protected.HandleFunc("/chat", chatHandler.Chat).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute, // long enough for assistant streams
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
