package seeds

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"medequip-backend/config"
	"medequip-backend/db/models"
)

// SeedProducts populates a starter product catalogue so the PM generator has
// frequency codes to work with on a fresh database.
func SeedProducts(db *gorm.DB) error {
	config.Logger.Info("Starting product catalogue seeding...")

	products := []models.Product{
		{Partnoid: "XR-1000", Productdescription: "Mobile X-Ray Unit", Frequency: "Half Yearly"},
		{Partnoid: "MN-2000", Productdescription: "Patient Monitor", Frequency: "Yearly"},
		{Partnoid: "VN-3000", Productdescription: "ICU Ventilator", Frequency: "Quarterly"},
		{Partnoid: "DF-4000", Productdescription: "Defibrillator", Frequency: "Thrice Yearly"},
	}

	for _, p := range products {
		var existing models.Product
		err := db.Where("partnoid = ?", p.Partnoid).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.ID = uuid.New()
		p.Status = "Active"
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.Partnoid, err)
		}
	}
	return nil
}

// SeedAdminUser creates the first administrator from ADMIN_EMAIL and
// ADMIN_PASSWORD. It does nothing when either is unset or the user exists.
func SeedAdminUser(db *gorm.DB) error {
	email := config.GetEnv("ADMIN_EMAIL")
	password := config.GetEnv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		config.Logger.Info("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		ID:       uuid.New(),
		FullName: config.GetEnvOrDefault("ADMIN_NAME", "Administrator"),
		Email:    email,
		Password: string(hash),
		Role:     models.AdminRole,
		Active:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	config.Logger.Info("Admin user seeded", zap.String("email", email))
	return nil
}

func SeedAll(db *gorm.DB) error {
	if err := SeedProducts(db); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	if err := SeedAdminUser(db); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	config.Logger.Info("Database seeding completed")
	return nil
}
