package main

import (
	"log"
	"os"

	"traveltactik/config"
	"traveltactik/db"
	"traveltactik/router"
	"traveltactik/workers"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg := config.Get(configPath)
	db.SetConfigurations(cfg)

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer database.Close()

	r := gin.Default()
	r.Use(db.SetDBtoContext(database))
	router.Initialize(r, cfg)

	workers.StartQuoteCleanup(database)

	log.Printf("TravelTactik API listening on :%s", cfg.ApiPort)
	if err := r.Run(":" + cfg.ApiPort); err != nil {
		log.Fatal(err)
	}
}
