package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/models"
	"gorm.io/gorm"
)

const (
	MaxMessageLength  = 2000
	DefaultReplyTitle = "Admin Update"
)

// ConversationSummary is one row of the admin chat console.
type ConversationSummary struct {
	Email         string         `json:"email"`
	LastMessage   models.Message `json:"last_message"`
	LastActivity  time.Time      `json:"last_activity"`
	AwaitingReply int            `json:"awaiting_reply"`
	Unread        int            `json:"unread"`
}

type MessageService struct {
	DB      *gorm.DB
	metrics *metrics.Metrics
}

func NewMessageService(db *gorm.DB, m *metrics.Metrics) *MessageService {
	return &MessageService{DB: db, metrics: m}
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if len([]rune(content)) > MaxMessageLength {
		return "", fmt.Errorf("%w: message exceeds %d characters", ErrValidation, MaxMessageLength)
	}
	return content, nil
}

func (s *MessageService) create(ctx context.Context, msg *models.Message) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityMessages, msg.ID, models.ActionInsert, msg.Email)
	})
}

// Send stores a customer message.
func (s *MessageService) Send(ctx context.Context, email, content, originClientID string) (*models.Message, error) {
	email = normalizeEmail(email)
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	msg := models.Message{
		Email:          email,
		Content:        content,
		IsAdmin:        false,
		OriginClientID: originClientID,
	}
	if err := s.create(ctx, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.metrics.IncMessageSent("customer")
	return &msg, nil
}

// Reply stores a staff message for one customer.
func (s *MessageService) Reply(ctx context.Context, email, title, content, originClientID string) (*models.Message, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrValidation)
	}
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultReplyTitle
	}
	msg := models.Message{
		Email:          email,
		Title:          &title,
		Content:        content,
		IsAdmin:        true,
		OriginClientID: originClientID,
	}
	if err := s.create(ctx, &msg); err != nil {
		return nil, fmt.Errorf("reply message: %w", err)
	}
	s.metrics.IncMessageSent("admin")
	return &msg, nil
}

// Conversation returns every message for email, oldest first.
func (s *MessageService) Conversation(ctx context.Context, email string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// UnreadCount counts staff messages the customer has not acknowledged.
func (s *MessageService) UnreadCount(ctx context.Context, email string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("email = ? AND is_admin = ? AND is_read = ?", normalizeEmail(email), true, false).
		Count(&n).Error
	return n, err
}

// MarkRead acknowledges messages sent by the other side of the
// conversation: staff messages when a customer reads, customer messages
// when staff reads. Empty ids means all of them. Already read rows are
// left untouched.
func (s *MessageService) MarkRead(ctx context.Context, email string, ids []uint, byAdmin bool) (int64, error) {
	email = normalizeEmail(email)
	var affected int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Message{}).
			Where("email = ? AND is_admin = ? AND is_read = ?", email, !byAdmin, false)
		if len(ids) > 0 {
			q = q.Where("id IN ?", ids)
		}
		res := q.Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		// RecordID 0 marks a change spanning several rows.
		return RecordChange(tx, models.EntityMessages, 0, models.ActionUpdate, email)
	})
	return affected, err
}

// MarkDelivered stamps delivered_at on staff messages pushed to a live
// customer connection, up to and including upToID, the newest message in
// the pushed snapshot. No change row is written so delivery does not
// trigger another push.
func (s *MessageService) MarkDelivered(ctx context.Context, email string, upToID uint) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("email = ? AND is_admin = ? AND delivered_at IS NULL AND id <= ?", normalizeEmail(email), true, upToID).
		Update("delivered_at", time.Now())
	return res.RowsAffected, res.Error
}

// Conversations lists one summary per customer, most recent activity
// first.
func (s *MessageService) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	var msgs []models.Message
	if err := s.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}

	byEmail := make(map[string]*ConversationSummary)
	for _, m := range msgs {
		sum, ok := byEmail[m.Email]
		if !ok {
			sum = &ConversationSummary{Email: m.Email}
			byEmail[m.Email] = sum
		}
		sum.LastMessage = m
		sum.LastActivity = m.CreatedAt
		if m.IsAdmin {
			sum.AwaitingReply = 0
			continue
		}
		sum.AwaitingReply++
		if !m.Read {
			sum.Unread++
		}
	}

	out := make([]ConversationSummary, 0, len(byEmail))
	for _, sum := range byEmail {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastMessage.ID > out[j].LastMessage.ID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}
