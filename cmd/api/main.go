package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"loxodon/internal/auth"
	"loxodon/internal/directory"
	"loxodon/internal/httpserver"
	"loxodon/internal/logger"
	"loxodon/internal/store"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	st := store.NewGorm(db)
	if err := st.AutoMigrate(); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	verifier, err := auth.NewVerifierFromEnv(context.Background())
	if err != nil {
		lg.Fatalw("verifier setup failed", "error", err)
	}
	dir := directory.FromEnv()
	if _, disabled := dir.(directory.Disabled); disabled {
		lg.Warnw("directory credentials not configured; user sync disabled")
	}

	router := httpserver.NewRouter(st, dir, verifier, lg)
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	lg.Infow("listening", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}
