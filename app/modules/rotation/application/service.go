package rotationservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/app/shared/results"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RotationService"

// TenantStore is the open store of one tenant. The service never holds on to
// a store past the call it was passed to.
type TenantStore interface {
	TenantID() string
	DB() *bun.DB
}

// Announcer receives award notices after the transaction that produced them
// has committed.
type Announcer interface {
	Publish(ctx context.Context, notice rotationdomain.AwardNotice) error
}

// Repositories groups the stateless repositories the service runs against
// each tenant store.
type Repositories struct {
	Participants rotationdb.ParticipantRepository
	Events       rotationdb.EventRepository
	Ledger       rotationdb.LedgerRepository
	State        rotationdb.StateRepository
}

// DefaultRepositories returns the Bun-backed repositories.
func DefaultRepositories() Repositories {
	return Repositories{
		Participants: rotationdb.NewParticipantRepo(),
		Events:       rotationdb.NewEventRepo(),
		Ledger:       rotationdb.NewLedgerRepo(),
		State:        rotationdb.NewStateRepo(),
	}
}

// RotationService runs the fairness rotation against one tenant store per call.
type RotationService struct {
	participants rotationdb.ParticipantRepository
	events       rotationdb.EventRepository
	ledger       rotationdb.LedgerRepository
	state        rotationdb.StateRepository
	announcer    Announcer
	logger       *slog.Logger
	metrics      observability.Metrics
	tracer       trace.Tracer
	now          func() time.Time
}

// NewRotationService creates a RotationService. announcer may be nil.
func NewRotationService(
	repos Repositories,
	announcer Announcer,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *RotationService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &RotationService{
		participants: repos.Participants,
		events:       repos.Events,
		ledger:       repos.Ledger,
		state:        repos.State,
		announcer:    announcer,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// announce publishes notice. Failures are logged and never returned: the
// award is already committed.
func (s *RotationService) announce(ctx context.Context, notice rotationdomain.AwardNotice) {
	if s.announcer == nil {
		return
	}
	if err := s.announcer.Publish(ctx, notice); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish award notice",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.String("topic", notice.Topic),
			slog.Int64("assignment_id", notice.AssignmentID),
			slog.Any("error", err),
		)
	}
}

func validateKind(kind rotationdomain.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, rotationdomain.ErrUnknownKind, kind)
	}
	return nil
}

// mapRepoErr translates repository sentinels into service sentinels.
func mapRepoErr(err error, what string) error {
	switch {
	case errors.Is(err, rotationdb.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, rotationdb.ErrDuplicateName):
		return fmt.Errorf("%s: %w", what, ErrDuplicateName)
	default:
		return err
	}
}

// isDomainErr reports whether err is an expected business failure rather
// than an infrastructure error.
func isDomainErr(err error) bool {
	return errors.Is(err, rotationdb.ErrNotFound) || errors.Is(err, rotationdb.ErrDuplicateName)
}

// failOrErr turns a repository error into a failure result when it is a
// business failure and into an infrastructure error otherwise.
func failOrErr[S any](err error, what string) (results.OperationResult[S, error], error) {
	if isDomainErr(err) {
		return results.FailureResult[S, error](mapRepoErr(err, what)), nil
	}
	return results.OperationResult[S, error]{}, fmt.Errorf("%s: %w", what, err)
}

func fail[S any](err error) (results.OperationResult[S, error], error) {
	return results.FailureResult[S, error](err), nil
}

func succeed[S any](v S) (results.OperationResult[S, error], error) {
	return results.SuccessResult[S, error](v), nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any] func(ctx context.Context) (results.OperationResult[S, error], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any](
	s *RotationService,
	ctx context.Context,
	store TenantStore,
	operationName string,
	kind rotationdomain.Kind,
	op operationFunc[S],
) (result results.OperationResult[S, error], err error) {
	if tenantctx.TenantID(ctx) == "" {
		ctx = tenantctx.WithTenantID(ctx, store.TenantID())
	}
	ctx, _ = tenantctx.EnsureCorrelationID(ctx)

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("tenant_id", store.TenantID()),
			attribute.String("kind", kind.String()),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		tenantctx.TenantAttr(ctx),
		tenantctx.CorrelationAttr(ctx),
		slog.String("operation", operationName),
		slog.String("kind", kind.String()),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				tenantctx.TenantAttr(ctx),
				tenantctx.CorrelationAttr(ctx),
				slog.String("operation", operationName),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, error]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("kind", kind.String()),
			slog.Bool("invariant_violation", errors.Is(err, ErrInvariantViolation)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("kind", kind.String()),
			slog.Any("failure", *result.Failure),
		)
	} else {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.String("operation", operationName),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// errRollback aborts a transaction whose logic returned a domain failure.
var errRollback = errors.New("rollback domain failure")

// runInTx runs fn in one transaction on the tenant store. The store opens
// transactions with BEGIN IMMEDIATE, so fn holds the write lock for its
// whole duration. A failure result rolls the transaction back.
func runInTx[S any](
	ctx context.Context,
	store TenantStore,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	db := store.DB()
	if db == nil {
		return results.OperationResult[S, error]{}, errors.New("tenant store is closed")
	}

	var result results.OperationResult[S, error]
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		if txErr == nil && result.IsFailure() {
			return errRollback
		}
		return txErr
	})
	if errors.Is(err, errRollback) {
		err = nil
	}
	return result, err
}

// runRead runs fn directly on the store handle.
func runRead[S any](
	ctx context.Context,
	store TenantStore,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	db := store.DB()
	if db == nil {
		return results.OperationResult[S, error]{}, errors.New("tenant store is closed")
	}
	return fn(ctx, db)
}

// unwrap converts an operation result to the (value, error) pair returned
// by the public API.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, nil
	}
	return *result.Success, nil
}
