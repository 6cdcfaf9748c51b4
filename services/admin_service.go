package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yeremiapane/restaurant-booking/models"
	"gorm.io/gorm"
)

// AdminService manages the staff allow-list.
type AdminService struct {
	DB *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db}
}

func (s *AdminService) List(ctx context.Context, search string) ([]models.Admin, error) {
	q := s.DB.WithContext(ctx).Model(&models.Admin{})
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(email) LIKE ? ESCAPE '!'", containsPattern(search))
	}
	var admins []models.Admin
	err := q.Order("email ASC").Find(&admins).Error
	return admins, err
}

// Add puts email on the allow-list and promotes its user. Only existing
// accounts can be listed.
func (s *AdminService) Add(ctx context.Context, email string) (*models.Admin, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	admin := models.Admin{Email: email}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Admin{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateAdmin
		}
		if err := tx.Create(&admin).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateAdmin
			}
			return err
		}
		var user models.User
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s has no account", ErrUserNotFound, email)
			}
			return err
		}
		if err := tx.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityAdmins, admin.ID, models.ActionInsert, "")
	})
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// Remove takes an admin off the allow-list and demotes the matching user.
func (s *AdminService) Remove(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.Admin
		if err := tx.First(&admin, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdminNotFound
			}
			return err
		}
		if err := tx.Delete(&admin).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("email = ?", admin.Email).Update("role", models.RoleCustomer).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityAdmins, admin.ID, models.ActionDelete, "")
	})
}
