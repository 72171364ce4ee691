package main

import (
	"log"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
