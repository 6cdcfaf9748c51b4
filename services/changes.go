package services

import (
	"errors"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-booking/models"
	"gorm.io/gorm"
)

// RecordChange appends an outbox row. Call it with the transaction that
// performs the write so the change is visible only if the write commits.
func RecordChange(tx *gorm.DB, entity string, recordID uint, action, email string) error {
	return tx.Create(&models.DBChange{
		Entity:    entity,
		RecordID:  recordID,
		Action:    action,
		Email:     strings.ToLower(email),
		ChangedAt: time.Now(),
	}).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// likeEscape is the LIKE escape character. A backslash would need
// doubling in MySQL string literals, so a plain character is used.
const likeEscape = "!"

// containsPattern turns a search term into a case-insensitive substring
// pattern for "LOWER(col) LIKE ? ESCAPE '!'", so % and _ match literally.
func containsPattern(search string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

// isUniqueViolation covers the sqlite, mysql and postgres wordings. gorm's
// ErrDuplicatedKey is only produced when TranslateError is enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
