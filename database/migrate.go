package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in migration order.
var Models = []interface{}{
	&models.User{},
	&models.Admin{},
	&models.Booking{},
	&models.Table{},
	&models.Message{},
	&models.DBChange{},
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// ErrAdminPasswordRequired is returned when a bootstrap admin email is
// configured for an account that does not exist yet and no password is
// given to create it.
var ErrAdminPasswordRequired = errors.New("ADMIN_PASSWORD is required to create the bootstrap admin")

// SeedAdmin makes sure the bootstrap admin exists both as a login and on
// the allow-list. The allow-list entry is only written together with its
// account, so a listed email can never be claimed by registering it.
func SeedAdmin(db *gorm.DB, email, name, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if password == "" {
				return ErrAdminPasswordRequired
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user = models.User{
				Name:     name,
				Email:    email,
				Password: string(hashed),
				Role:     models.RoleAdmin,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed admin user: %w", err)
			}
			utils.InfoLogger.Printf("Bootstrap admin created: %s", email)
		case err != nil:
			return err
		case user.Role != models.RoleAdmin:
			if err := tx.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
				return err
			}
		}

		var admin models.Admin
		if err := tx.Where(models.Admin{Email: email}).FirstOrCreate(&admin).Error; err != nil {
			return fmt.Errorf("seed admin allow-list: %w", err)
		}
		return nil
	})
}
