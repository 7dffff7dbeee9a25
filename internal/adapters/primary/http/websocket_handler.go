package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/service-desk-sla/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// WebSocketHandler upgrades authenticated connections onto the SLA alert hub.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	tm       *auth.TokenManager
	authz    ports.AuthorizationService
	upgrader websocket.Upgrader
	timings  wsAdapter.Timings
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	tm *auth.TokenManager,
	authz ports.AuthorizationService,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:   hub,
		tm:    tm,
		authz: authz,
		timings: wsAdapter.Timings{
			PingInterval: cfg.WebSocket.PingInterval,
			PongWait:     cfg.WebSocket.PongWait,
		},
		logger: logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker allows every origin in development. Otherwise a browser
// origin must match WS_ALLOWED_ORIGINS; non-browser clients send none.
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowed := cfg.WebSocket.AllowedOrigins
	dev := cfg.IsDevelopment()

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if dev || origin == "" {
			return true
		}
		if originAllowed(origin, allowed) {
			return true
		}
		h.logger.Warn("websocket origin rejected",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
		)
		return false
	}
}

// originAllowed matches the origin host against exact hosts and "*.domain"
// wildcards. A wildcard also admits the bare domain.
func originAllowed(origin string, allowed []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)

	for _, pattern := range allowed {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if base, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == base || strings.HasSuffix(host, "."+base) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}

// ServeHTTP authenticates and authorizes the handshake before upgrading.
// Browsers cannot set headers on the handshake, so the token query parameter
// is accepted alongside a Bearer header.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		tokenString, _ = mw.BearerToken(r)
	}
	if tokenString == "" {
		h.logger.WarnContext(ctx, "websocket connection rejected: missing token", "remote_addr", r.RemoteAddr)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket connection rejected: invalid token",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}
	ctx = mw.WithClaims(ctx, claims)

	allowed, err := h.authz.Can(ctx, claims.UserID, domain.PermissionSLARead)
	if err != nil {
		h.logger.ErrorContext(ctx, "websocket permission check failed", "error", err)
		http.Error(w, "Permission check failed", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	if !h.hub.Attach(conn, claims.UserID, h.timings) {
		h.logger.WarnContext(ctx, "websocket hub stopped, closing connection")
		return
	}

	h.logger.InfoContext(ctx, "websocket connection established", "remote_addr", r.RemoteAddr)
}
