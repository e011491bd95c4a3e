package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/classtrack-dev/classtrack/db"
	"github.com/classtrack-dev/classtrack/internal/auth"
	"github.com/classtrack-dev/classtrack/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT secret: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")

	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	database, err := db.Connect(dsn)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := db.SeedDemoUsers(database); err != nil {
			log.Fatalf("Failed to seed demo users: %v", err)
		}
		log.Println("Ensured demo users exist: admin, teacher1, parent1, student1")
	}

	r := router.NewRouter(database)

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "8001"
		log.Println("PORT not set, defaulting to 8001")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
