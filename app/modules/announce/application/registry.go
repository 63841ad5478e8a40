package announceservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/award-rotation/app/eventbus"
	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Results recorded on announcements_total.
const (
	ResultDelivered   = "delivered"
	ResultFailed      = "failed"
	ResultRateLimited = "rate_limited"
	ResultMalformed   = "malformed"
)

// ErrAlreadyStarted is returned by Start on a running registry.
var ErrAlreadyStarted = errors.New("announcer registry already started")

// Registry maps tenants to announcers and consumes award events off the bus.
// Tenants without a registered announcer fall back to the default one.
type Registry struct {
	mu         sync.RWMutex
	announcers map[string]Announcer
	fallback   Announcer

	limiter    *TenantRateLimiter
	timeout    time.Duration
	subscriber message.Subscriber
	wmLogger   watermill.LoggerAdapter
	logger     *slog.Logger
	metrics    observability.Metrics

	runMu  sync.Mutex
	router *message.Router
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates a Registry. Webhooks from cfg are registered up front.
func NewRegistry(
	subscriber message.Subscriber,
	wmLogger watermill.LoggerAdapter,
	cfg config.AnnouncementsConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	if wmLogger == nil {
		wmLogger = watermill.NewSlogLogger(logger)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	r := &Registry{
		announcers: make(map[string]Announcer),
		fallback:   NewLogAnnouncer(logger),
		limiter:    NewTenantRateLimiter(perMinute, cfg.Burst),
		timeout:    timeout,
		subscriber: subscriber,
		wmLogger:   wmLogger,
		logger:     logger,
		metrics:    metrics,
	}
	for tenantID, url := range cfg.Webhooks {
		r.Register(tenantID, NewWebhookAnnouncer(url, timeout))
	}
	return r
}

// Register sets the announcer for tenantID, replacing any previous one.
func (r *Registry) Register(tenantID string, a Announcer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcers[tenantID] = a
}

// Unregister drops the announcer for tenantID.
func (r *Registry) Unregister(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.announcers, tenantID)
}

// Lookup returns the announcer for tenantID, or the fallback.
func (r *Registry) Lookup(tenantID string) Announcer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.announcers[tenantID]; ok {
		return a
	}
	return r.fallback
}

// Start subscribes to the award topics and returns once the router runs.
func (r *Registry) Start(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.router != nil {
		return ErrAlreadyStarted
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.timeout}, r.wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create announcement router: %w", err)
	}
	router.AddNoPublisherHandler("announce_award_assigned", rotationdomain.AwardAssignedV1, r.subscriber, r.handle)
	router.AddNoPublisherHandler("announce_award_unassigned", rotationdomain.AwardUnassignedV1, r.subscriber, r.handle)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := router.Run(runCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			r.logger.Error("Announcement router stopped", slog.Any("error", runErr))
		}
	}()

	select {
	case <-router.Running():
	case <-done:
		cancel()
		return fmt.Errorf("announcement router exited before running")
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	r.router = router
	r.cancel = cancel
	r.done = done
	r.logger.Info("Announcement router started")
	return nil
}

// Stop closes the router and waits for in-flight handlers.
func (r *Registry) Stop() error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.router == nil {
		return nil
	}

	err := r.router.Close()
	r.cancel()
	<-r.done
	r.router, r.cancel, r.done = nil, nil, nil
	r.logger.Info("Announcement router stopped")
	return err
}

// handle delivers one award event. It always acks: a failed announcement is
// logged and counted, never retried.
func (r *Registry) handle(msg *message.Message) error {
	ctx := context.WithoutCancel(msg.Context())
	if id := msg.Metadata.Get(eventbus.CorrelationMetadataKey); id != "" {
		ctx = tenantctx.WithCorrelationID(ctx, id)
	}

	var notice rotationdomain.AwardNotice
	if err := json.Unmarshal(msg.Payload, &notice); err != nil {
		r.logger.WarnContext(ctx, "Dropping malformed award notice",
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		r.metrics.RecordAnnouncement(ResultMalformed)
		return nil
	}
	notice.Topic = msg.Metadata.Get(eventbus.TopicMetadataKey)
	ctx = tenantctx.WithTenantID(ctx, notice.TenantID)

	if !r.limiter.Allow(notice.TenantID) {
		r.logger.WarnContext(ctx, "Announcement rate limited",
			tenantctx.TenantAttr(ctx),
			slog.String("topic", notice.Topic),
			slog.Int64("assignment_id", notice.AssignmentID),
		)
		r.metrics.RecordAnnouncement(ResultRateLimited)
		return nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.Lookup(notice.TenantID).Announce(deliverCtx, notice); err != nil {
		r.logger.WarnContext(ctx, "Announcement failed",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.String("topic", notice.Topic),
			slog.Int64("assignment_id", notice.AssignmentID),
			slog.Any("error", err),
		)
		r.metrics.RecordAnnouncement(ResultFailed)
		return nil
	}
	r.metrics.RecordAnnouncement(ResultDelivered)
	return nil
}
