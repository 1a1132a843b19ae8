package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/adarshn/notebox/internal/server"
	"github.com/adarshn/notebox/internal/server/config"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}

	app.Run(context.Background())
}
