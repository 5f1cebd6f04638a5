// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tambola-hq/tambola/internal/auth"
	"github.com/tambola-hq/tambola/internal/cache"
	"github.com/tambola-hq/tambola/internal/database"
	"github.com/tambola-hq/tambola/internal/handlers"
	"github.com/tambola-hq/tambola/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	store := cache.NewStore(cache.Rdb)
	locker := cache.NewLocker(cache.Rdb)
	winners := database.NewWinnerStore()

	srv := handlers.NewGameServer(store, locker, winners)

	mux := http.NewServeMux()

	// account endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// game endpoints
	mux.Handle("/game/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateGameHandler(srv),
	)))
	mux.Handle("/game/winners/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWinnersHandler(srv),
	)))
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
