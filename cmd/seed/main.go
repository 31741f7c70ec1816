// cmd/seed creates the demo users, payment methods, settings row, one plan
// and one product. Safe to run repeatedly.
// Usage: go run ./cmd/seed
package main

import (
	"os"

	"minimalgym/internal/config"
	"minimalgym/internal/infra"
	"minimalgym/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.RunMigrations)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "minimalgym"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		users := []model.User{
			{Username: "admin", FullName: "Admin Demo", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true},
			{Username: "desk", FullName: "Front Desk", PasswordHash: string(hash), Role: model.RoleStaff, IsActive: true},
		}
		for i := range users {
			if err := upsert(tx, &users[i], "username", "password_hash", "role", "is_active", "is_locked"); err != nil {
				return err
			}
		}

		methods := []model.PaymentMethod{
			{Name: cfg.CashMethodName, IsActive: true, IsCashEquivalent: true},
			{Name: "Card", IsActive: true},
			{Name: "Transfer", IsActive: true},
			{Name: "Other", IsActive: true},
		}
		for i := range methods {
			if err := upsert(tx, &methods[i], "name", "is_active", "is_cash_equivalent"); err != nil {
				return err
			}
		}

		settings := model.Setting{ID: model.SettingsID, TaxRate: decimal.Zero, ReceiptPrefix: "R-", NextReceiptNo: 1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
			return err
		}

		plan := model.MembershipPlan{Name: "Monthly", DurationDays: 30, Price: decimal.NewFromInt(30), IsActive: true}
		if err := tx.Where(model.MembershipPlan{Name: plan.Name}).FirstOrCreate(&plan).Error; err != nil {
			return err
		}
		product := model.Product{SKU: "WATER-500", Name: "Water 500ml", Price: decimal.NewFromFloat(1.5), IsActive: true}
		return tx.Where(model.Product{SKU: product.SKU}).FirstOrCreate(&product).Error
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Str("users", "admin, desk").Msg("seed complete")
}

// upsert inserts row or, when key already exists, overwrites the listed columns.
func upsert(tx *gorm.DB, row interface{}, key string, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}
