// Package main seeds the initial admin account from environment variables.
package main

import (
	"errors"
	"log"
	"os"

	"domus/internal/config"
	"domus/internal/models"
	"domus/internal/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	var existing models.User
	err = db.Where("email = ?", models.NormalizeEmail(adminEmail)).First(&existing).Error
	if err == nil {
		log.Println("admin user already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("failed to check for existing admin: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	admin := models.User{
		Email:              models.NormalizeEmail(adminEmail),
		PasswordHash:       string(hash),
		FirstName:          config.GetEnv("ADMIN_FIRST_NAME", "Admin"),
		LastName:           config.GetEnv("ADMIN_LAST_NAME", ""),
		Role:               models.RoleAdmin,
		RegistrationStatus: models.RegistrationActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}
	log.Printf("admin account %s created", admin.Email)
}
