package announceservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
)

// Announcer delivers one award notice to wherever a tenant wants it.
type Announcer interface {
	Announce(ctx context.Context, notice rotationdomain.AwardNotice) error
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(ctx context.Context, notice rotationdomain.AwardNotice) error

func (f AnnouncerFunc) Announce(ctx context.Context, notice rotationdomain.AwardNotice) error {
	return f(ctx, notice)
}

// Message renders the human-readable line for a notice.
func Message(notice rotationdomain.AwardNotice) string {
	award := "MVP"
	if notice.Kind == rotationdomain.KindWinner {
		award = "winner award"
	}
	switch notice.Topic {
	case rotationdomain.AwardUnassignedV1:
		return fmt.Sprintf("%s no longer holds the %s for %s (total %d)",
			notice.ParticipantName, award, notice.EventName, notice.AwardCount)
	default:
		return fmt.Sprintf("%s received the %s for %s (total %d)",
			notice.ParticipantName, award, notice.EventName, notice.AwardCount)
	}
}

// LogAnnouncer writes notices to the structured log. It is the fallback for
// tenants without a webhook.
type LogAnnouncer struct {
	logger *slog.Logger
}

func NewLogAnnouncer(logger *slog.Logger) *LogAnnouncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAnnouncer{logger: logger}
}

func (a *LogAnnouncer) Announce(ctx context.Context, notice rotationdomain.AwardNotice) error {
	a.logger.InfoContext(ctx, Message(notice),
		tenantctx.TenantAttr(ctx),
		tenantctx.CorrelationAttr(ctx),
		slog.String("topic", notice.Topic),
		slog.String("kind", notice.Kind.String()),
		slog.Int64("assignment_id", notice.AssignmentID),
	)
	return nil
}

// webhookPayload is the JSON body posted to a tenant webhook.
type webhookPayload struct {
	Topic   string                     `json:"topic"`
	Content string                     `json:"content"`
	Notice  rotationdomain.AwardNotice `json:"notice"`
}

// WebhookAnnouncer posts notices as JSON to a tenant URL.
type WebhookAnnouncer struct {
	url    string
	client *http.Client
}

func NewWebhookAnnouncer(url string, timeout time.Duration) *WebhookAnnouncer {
	return &WebhookAnnouncer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (a *WebhookAnnouncer) Announce(ctx context.Context, notice rotationdomain.AwardNotice) error {
	body, err := json.Marshal(webhookPayload{
		Topic:   notice.Topic,
		Content: Message(notice),
		Notice:  notice,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := tenantctx.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
