package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/mldash/backend/internal/db"
	"github.com/mldash/backend/internal/seed"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Connect to database
	db.Connect()

	// Run migrations first
	log.Println("Running database migrations...")
	db.AutoMigrate()

	empty, err := seed.IsEmpty(db.DB)
	if err != nil {
		log.Fatalf("Failed to inspect database: %v", err)
	}
	if !empty {
		log.Println("Database already contains data, skipping seed")
		return
	}

	log.Println("Seeding database with demo data...")
	if err := seed.Run(db.DB); err != nil {
		log.Fatalf("Error seeding database: %v", err)
	}

	log.Println("Database seeding completed successfully")
}
