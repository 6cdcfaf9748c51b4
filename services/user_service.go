package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yeremiapane/restaurant-booking/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 6
	MaxAvatarBytes    = 512 << 10
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate holds optional fields; nil means unchanged.
type ProfileUpdate struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{Name: name, Email: email, Password: string(hashed)}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		// Allow-list entries always belong to an existing account, so an
		// unclaimed listed email can only be stale and must not be taken over.
		role, err := resolveRole(tx, email)
		if err != nil {
			return err
		}
		if role == models.RoleAdmin {
			return fmt.Errorf("%w: email is reserved", ErrEmailTaken)
		}
		user.Role = models.RoleCustomer
		if err := tx.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials and refreshes the stored role from the
// allow-list.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.syncRole(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveRole returns admin when email is on the allow-list.
func (s *UserService) ResolveRole(ctx context.Context, email string) (string, error) {
	return resolveRole(s.DB.WithContext(ctx), normalizeEmail(email))
}

func resolveRole(db *gorm.DB, email string) (string, error) {
	var n int64
	if err := db.Model(&models.Admin{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		return models.RoleAdmin, nil
	}
	return models.RoleCustomer, nil
}

// GetByID loads a user and re-resolves its role, so removing someone from
// the allow-list takes effect on their next request.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.syncRole(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) syncRole(ctx context.Context, user *models.User) error {
	role, err := s.ResolveRole(ctx, user.Email)
	if err != nil {
		return err
	}
	if role == user.Role {
		return nil
	}
	user.Role = role
	return s.DB.WithContext(ctx).Model(user).Update("role", role).Error
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if avatar != "" && !strings.HasPrefix(avatar, "data:image/") {
			return nil, fmt.Errorf("%w: avatar must be an image data URL", ErrValidation)
		}
		if len(avatar) > MaxAvatarBytes {
			return nil, fmt.Errorf("%w: avatar exceeds %d KiB", ErrValidation, MaxAvatarBytes>>10)
		}
		updates["avatar"] = avatar
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}
