package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// ctxFields lists the request-scoped values copied onto every record, in output order.
var ctxFields = []struct {
	key  ctxKey
	name string
}{
	{requestIDKey, "request_id"},
	{userIDKey, "user_id"},
}

// Config selects the handler. Output defaults to stdout and Format to json.
type Config struct {
	Level       string
	Format      string
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Environment string
}

// ParseLevel maps a configured level name onto slog.Level. Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	var lvl slog.Level
	switch s := strings.ToLower(strings.TrimSpace(name)); s {
	case "warning":
		return slog.LevelWarn
	default:
		if err := lvl.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return lvl
	}
}

// NewLogger builds a slog logger that stamps service metadata and the
// request-scoped IDs found in the record's context.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: utcTime,
	}

	var base slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(out, opts)
	}

	var static []slog.Attr
	if cfg.ServiceName != "" {
		static = append(static, slog.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		static = append(static, slog.String("environment", cfg.Environment))
	}
	return slog.New(ctxHandler{base.WithAttrs(static)})
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return a
}

type ctxHandler struct {
	slog.Handler
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			r.AddAttrs(slog.String(f.name, v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{h.Handler.WithGroup(name)}
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID tags later log lines in ctx with the acting user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LogPanic records a recovered panic together with the current goroutine's stack.
func LogPanic(ctx context.Context, logger *slog.Logger, recovered any) {
	logger.ErrorContext(ctx, "panic recovered",
		"panic", recovered,
		"stack_trace", string(debug.Stack()),
	)
}

// HTTPRequestLogger writes one access line per request.
type HTTPRequestLogger struct {
	Logger *slog.Logger
}

// RequestInfo describes one completed HTTP exchange.
type RequestInfo struct {
	Method       string
	Path         string
	Query        string
	StatusCode   int
	Duration     time.Duration
	BytesWritten int64
	ClientIP     string
	UserAgent    string
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogRequest logs at error for 5xx, warn for 4xx and info otherwise.
func (l *HTTPRequestLogger) LogRequest(ctx context.Context, info RequestInfo) {
	attrs := []slog.Attr{
		slog.String("method", info.Method),
		slog.String("path", info.Path),
		slog.Int("status", info.StatusCode),
		slog.Int64("duration_ms", info.Duration.Milliseconds()),
		slog.Int64("bytes", info.BytesWritten),
		slog.String("client_ip", info.ClientIP),
	}
	if info.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", info.UserAgent))
	}
	if info.Query != "" {
		attrs = append(attrs, slog.String("query", info.Query))
	}
	l.Logger.LogAttrs(ctx, statusLevel(info.StatusCode), "http request", attrs...)
}
