package main

import (
	"log"
	"os"
	"path/filepath"

	"modbot/bot"
	"modbot/config"
	"modbot/handlers"
	"modbot/utils"
	"modbot/utils/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := utils.SetupLogger(cfg.Logger); err != nil {
		log.Fatalf("Error setting up logging: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	handlers.Register(b)

	b.Run()
	b.Close()
}
