package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/middleware"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/internal/store"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated HTTP requests to websocket sessions.
type Handler struct {
	hub       *Hub
	users     *store.UserStore
	jwtSecret string
	logger    *logger.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(hub *Hub, users *store.UserStore, jwtSecret string, log *logger.Logger) *Handler {
	return &Handler{
		hub:       hub,
		users:     users,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeHTTP authenticates the handshake, upgrades the connection, and starts
// the session pumps. An unknown or unauthenticated principal is rejected
// before any room state is touched.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)
	if token == "" {
		http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(token, h.jwtSecret)
	if err != nil {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.users.Get(r.Context(), claims.Subject)
	if err != nil {
		// The directory only lists known principals.
		user = &model.User{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
		if user.Role == "" {
			http.Error(w, `{"error":"unknown principal"}`, http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// handshakeToken reads the token from the query string or the Authorization
// header.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
