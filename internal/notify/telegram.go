package notify

import (
	"errors"
	"fmt"
	"strings"

	"consultdesk/internal/config"
	"consultdesk/internal/domain"
	"consultdesk/internal/events"
	"consultdesk/internal/logging"
	"consultdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// NewBotAPI connects to the Bot API with the configured token.
func NewBotAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Notifier posts booking lifecycle events to the admin chats.
type Notifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	logger  zerolog.Logger
}

func NewNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		chatIDs: chatIDs,
		logger:  logging.Component(logger, "notify"),
	}
}

// Subscribe registers the notifier on every consultation event it reports.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	for _, t := range []string{
		events.EventConsultationCreated,
		events.EventConsultationCancelled,
		events.EventConsultationStatusChanged,
		events.EventConsultationPaid,
	} {
		bus.Subscribe(t, n.Handle)
	}
}

// Handle formats the event and sends it to each admin chat.
func (n *Notifier) Handle(e *events.Event) error {
	var p events.ConsultationEventPayload
	if err := e.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}

	text := FormatEvent(e.Type, p)
	if text == "" {
		return nil
	}

	var errs []error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = models.ParseModeMarkdown
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("event_type", e.Type).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatEvent renders a Markdown notification. Unknown events render empty.
func FormatEvent(eventType string, p events.ConsultationEventPayload) string {
	var title string
	switch eventType {
	case events.EventConsultationCreated:
		title = "🆕 *New consultation request*"
	case events.EventConsultationCancelled:
		title = "❌ *Consultation cancelled by client*"
	case events.EventConsultationStatusChanged:
		title = fmt.Sprintf("🔄 *Status changed:* %s → %s",
			models.StatusLabel(p.PreviousStatus), models.StatusLabel(p.Status))
	case events.EventConsultationPaid:
		if p.HasPaid {
			title = "💰 *Payment received*"
		} else {
			title = "💸 *Payment mark removed*"
		}
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	line(&b, "Client", p.FullName)
	line(&b, "Email", p.Email)
	line(&b, "Contact", p.Contact)
	line(&b, "Service", models.ConsultationTypeLabel(p.ConsultationType))
	line(&b, "When", strings.TrimSpace(p.Date+" "+p.Time))
	line(&b, "ID", p.ConsultationID)
	return strings.TrimRight(b.String(), "\n")
}

func line(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, tgbotapi.EscapeText(models.ParseModeMarkdown, value))
}
