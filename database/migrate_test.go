package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-booking/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestSeedAdminCreatesLoginAndAllowList(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedAdmin(db, " Admin@Example.com ", "Boss", "secret123"))

	var admin models.Admin
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&admin).Error)

	var user models.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))
}

func TestSeedAdminIsRepeatable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedAdmin(db, "admin@example.com", "Boss", "secret123"))
	require.NoError(t, SeedAdmin(db, "admin@example.com", "Boss", "secret123"))

	var admins, users int64
	db.Model(&models.Admin{}).Count(&admins)
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(1), admins)
	assert.Equal(t, int64(1), users)
}

func TestSeedAdminWithoutPasswordNeedsExistingAccount(t *testing.T) {
	db := openTestDB(t)

	err := SeedAdmin(db, "staff@example.com", "", "")
	assert.ErrorIs(t, err, ErrAdminPasswordRequired)

	var admins int64
	db.Model(&models.Admin{}).Count(&admins)
	assert.Zero(t, admins)
}

func TestSeedAdminWithoutPasswordPromotesExistingAccount(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.User{Name: "Staff", Email: "staff@example.com", Password: "x", Role: models.RoleCustomer}).Error)

	require.NoError(t, SeedAdmin(db, "staff@example.com", "", ""))

	var user models.User
	require.NoError(t, db.Where("email = ?", "staff@example.com").First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Role)

	var admins int64
	db.Model(&models.Admin{}).Where("email = ?", "staff@example.com").Count(&admins)
	assert.Equal(t, int64(1), admins)
}

func TestSeedAdminSkipsEmptyEmail(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedAdmin(db, "", "", ""))

	var admins int64
	db.Model(&models.Admin{}).Count(&admins)
	assert.Zero(t, admins)
}
