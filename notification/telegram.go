package notification

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier alerts the staff chat about new bookings.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
}

func NewTelegramNotifier(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// NewFromToken connects to the Bot API. It returns nil, nil when token or
// chatID is unset so callers can treat the notifier as optional.
func NewFromToken(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	utils.InfoLogger.Infof("Telegram notifier authorized as @%s", bot.Self.UserName)
	return NewTelegramNotifier(bot, chatID), nil
}

func (n *TelegramNotifier) NotifyBookingSubmitted(ctx context.Context, b models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatBooking(b))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatBooking renders the staff alert. User-supplied fields are escaped
// for HTML parse mode.
func FormatBooking(b models.Booking) string {
	esc := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	var sb strings.Builder
	sb.WriteString("<b>New booking request</b>\n")
	fmt.Fprintf(&sb, "#%d %s (%s)\n", b.ID, esc.Replace(b.Name), esc.Replace(b.Email))
	fmt.Fprintf(&sb, "%s at %s, %d pax\n", b.Date, b.Time, b.People)
	fmt.Fprintf(&sb, "Phone: %s", esc.Replace(b.Phone))
	return sb.String()
}
