package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for every span this service starts.
const TracerName = "github.com/Black-And-White-Club/award-rotation"

// Observability bundles the logger, metrics and tracer handed to every module.
type Observability struct {
	Logger   *slog.Logger
	Metrics  Metrics
	Tracer   trace.Tracer
	Registry *prometheus.Registry
}

// New builds the process observability stack from config.
func New(cfg config.ObservabilityConfig) Observability {
	logger := NewLogger(cfg, os.Stdout)
	if cfg.Environment != "" {
		logger = logger.With(slog.String("environment", cfg.Environment))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return Observability{
		Logger:   logger,
		Metrics:  NewPrometheusMetrics(registry),
		Tracer:   otel.Tracer(TracerName),
		Registry: registry,
	}
}

// NewLogger returns a slog logger writing JSON (default) or text to w.
func NewLogger(cfg config.ObservabilityConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
