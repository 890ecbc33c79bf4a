package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letsride-server/handlers"
	"letsride-server/middleware"
	"letsride-server/services"
	"letsride-server/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment configuration")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is not set")
	}
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB connection failed: %v", err)
	}
	if err := mongoClient.Ping(context.Background(), nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")
	db := mongoClient.Database("letsride")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Fatal("REDIS_ADDR environment variable is not set")
	}
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		redisDB, err = strconv.Atoi(redisDBStr)
		if err != nil {
			log.Fatalf("Invalid REDIS_DB value: %v", err)
		}
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Services
	authService := services.NewAuthService(db, jwtSecret)
	userService := services.NewUserService(db, redisClient)
	graph := services.NewMongoSocialGraph(mongoClient, db)
	friendService := services.NewFriendService(graph, userService)
	eventService := services.NewEventService(db)
	feedService := services.NewFeedService(eventService, friendService, userService)
	mediaService, err := services.NewMediaService(db)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	registry := store.NewRegistry()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, registry)
	userHandler := handlers.NewUserHandler(userService, mediaService)
	friendHandler := handlers.NewFriendHandler(friendService, userService, registry)
	eventHandler := handlers.NewEventHandler(eventService, feedService, friendService, mediaService, registry)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	healthHandler := handlers.NewHealthHandler(mongoClient, redisClient)

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	rateLimiter := middleware.NewRateLimiter(120, 120)
	defer rateLimiter.Stop()

	r := mux.NewRouter()

	// CORS middleware
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	r.Use(middleware.ErrorMiddleware())
	r.Use(metrics.Middleware())

	// The limiter keys by user id, so it must run after JWTMiddleware on
	// authenticated routes. Public routes fall back to IP keying.
	limit := rateLimiter.Middleware()

	// Routes

	r.HandleFunc("/healthz", healthHandler.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.Use(limit)
	authRouter.HandleFunc("/register", authHandler.Register).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.Login).Methods("POST", "OPTIONS")

	logoutRouter := r.PathPrefix("/auth").Subrouter()
	logoutRouter.Use(middleware.JWTMiddleware(jwtSecret), limit)
	logoutRouter.HandleFunc("/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	// User routes
	userRouter := r.PathPrefix("/users").Subrouter()
	userRouter.Use(middleware.JWTMiddleware(jwtSecret), limit)
	userRouter.HandleFunc("/profile", userHandler.SetupProfile).Methods("POST", "OPTIONS")
	userRouter.HandleFunc("/me", userHandler.Me).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/me", userHandler.UpdateMe).Methods("PATCH", "OPTIONS")
	userRouter.HandleFunc("/me/avatar", userHandler.UploadAvatar).Methods("POST", "OPTIONS")
	userRouter.HandleFunc("/handle-check", userHandler.CheckHandle).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/handle-suggestions", userHandler.SuggestHandles).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/handle/{handle}", userHandler.GetByHandle).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/{id}/block", userHandler.BlockUser).Methods("POST", "OPTIONS")
	userRouter.HandleFunc("/{id}/block", userHandler.UnblockUser).Methods("DELETE", "OPTIONS")

	// Friend routes
	friendRouter := r.PathPrefix("/friends").Subrouter()
	friendRouter.Use(middleware.JWTMiddleware(jwtSecret), limit)
	friendRouter.HandleFunc("", friendHandler.ListFriends).Methods("GET", "OPTIONS")
	friendRouter.HandleFunc("/requests", friendHandler.SendRequest).Methods("POST", "OPTIONS")
	friendRouter.HandleFunc("/requests", friendHandler.ListRequests).Methods("GET", "OPTIONS")
	friendRouter.HandleFunc("/requests/{id}/accept", friendHandler.AcceptRequest).Methods("POST", "OPTIONS")
	friendRouter.HandleFunc("/requests/{id}/reject", friendHandler.RejectRequest).Methods("POST", "OPTIONS")
	friendRouter.HandleFunc("/{id}", friendHandler.RemoveFriend).Methods("DELETE", "OPTIONS")

	// Event routes
	eventRouter := r.PathPrefix("/events").Subrouter()
	eventRouter.Use(middleware.JWTMiddleware(jwtSecret), limit)
	eventRouter.HandleFunc("", eventHandler.Create).Methods("POST", "OPTIONS")
	eventRouter.HandleFunc("/feed", eventHandler.Feed).Methods("GET", "OPTIONS")
	eventRouter.HandleFunc("/{id}", eventHandler.Get).Methods("GET", "OPTIONS")
	eventRouter.HandleFunc("/{id}", eventHandler.Update).Methods("PATCH", "OPTIONS")
	eventRouter.HandleFunc("/{id}", eventHandler.Delete).Methods("DELETE", "OPTIONS")
	eventRouter.HandleFunc("/{id}/join", eventHandler.Join).Methods("POST", "OPTIONS")
	eventRouter.HandleFunc("/{id}/leave", eventHandler.Leave).Methods("POST", "OPTIONS")
	eventRouter.HandleFunc("/{id}/invite", eventHandler.Invite).Methods("POST", "OPTIONS")
	eventRouter.HandleFunc("/{id}/transfer", eventHandler.TransferOwnership).Methods("POST", "OPTIONS")
	eventRouter.HandleFunc("/{id}/participants/{userId}", eventHandler.RemoveParticipant).Methods("DELETE", "OPTIONS")
	eventRouter.HandleFunc("/{id}/image", eventHandler.UploadBanner).Methods("POST", "OPTIONS")

	// Media routes
	chatMediaRouter := r.PathPrefix("/media/chats").Subrouter()
	chatMediaRouter.Use(middleware.JWTMiddleware(jwtSecret), limit)
	chatMediaRouter.HandleFunc("/{chatId}/{messageId}", mediaHandler.UploadChatMedia).Methods("POST", "OPTIONS")

	r.Handle("/media/{path:.*}", limit(http.HandlerFunc(mediaHandler.Serve))).Methods("GET", "OPTIONS")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
