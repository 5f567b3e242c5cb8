// Package telegram delivers research outcome notifications to a configured
// chat. It is a one-way channel: the engine pushes, nobody talks back.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"minerva/internal/domain/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/templates"
)

const (
	completedTemplateID = "research/notify_completed"
	failedTemplateID    = "research/notify_failed"

	// summaryLimit caps how much analysis text is quoted in a notification.
	summaryLimit = 400
)

// sender is the slice of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends research outcome messages to one chat. Delivery is
// best-effort: failures are logged and never propagate to the caller.
type Notifier struct {
	api       sender
	chatID    int64
	templates *templates.Registry
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewNotifier connects to the Telegram bot API. Token and chat id are
// required; use a nil *Notifier to disable notifications entirely.
func NewNotifier(token string, chatID int64, tmpl *templates.Registry, log *logger.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token and chat id are required")
	}
	if tmpl == nil {
		tmpl = templates.Get()
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	log.Infow("Telegram notifier connected", "bot", api.Self.UserName, "chat_id", chatID)

	// Telegram allows ~30 msg/sec; one chat tolerates far less.
	return &Notifier{
		api:       api,
		chatID:    chatID,
		templates: tmpl,
		limiter:   rate.NewLimiter(rate.Limit(1), 5),
		log:       log.With("component", "telegram_notifier"),
	}, nil
}

// ResearchFinished sends the outcome message for one terminal research.
func (n *Notifier) ResearchFinished(ctx context.Context, res *research.Research, success bool) {
	if n == nil {
		return
	}

	text, err := n.renderOutcome(res, success)
	if err != nil {
		n.log.Warnw("Failed to render notification", "research_id", res.ID, "error", err)
		return
	}

	if err := n.send(ctx, text); err != nil {
		n.log.Warnw("Failed to deliver notification", "research_id", res.ID, "error", err)
		return
	}

	n.log.Debugw("Notification delivered", "research_id", res.ID, "success", success)
}

func (n *Notifier) renderOutcome(res *research.Research, success bool) (string, error) {
	data := map[string]interface{}{
		"ID":        res.ID.String(),
		"Symbol":    res.StockSymbol,
		"Workflow":  res.WorkflowType,
		"Timeframe": string(res.Timeframe),
	}

	if success {
		data["Summary"] = summarize(res.Results)
		return n.templates.Render(completedTemplateID, data)
	}

	errorText := "unknown error"
	if res.ErrorMessage != nil && *res.ErrorMessage != "" {
		errorText = *res.ErrorMessage
	}
	data["Error"] = errorText

	return n.templates.Render(failedTemplateID, data)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		return errors.Wrap(err, "send telegram message")
	}

	return nil
}

// summarize pulls a quotable snippet out of workflow results: the agentic
// analysis text when present, else the static summary text.
func summarize(results map[string]interface{}) string {
	if results == nil {
		return ""
	}

	var text string
	if analysis, ok := results["analysis"].(string); ok {
		text = analysis
	} else if summary, ok := results["summary"].(map[string]interface{}); ok {
		text, _ = summary["text"].(string)
	}

	text = strings.TrimSpace(text)
	if len(text) > summaryLimit {
		text = fmt.Sprintf("%s...", strings.TrimSpace(text[:summaryLimit]))
	}

	return text
}
