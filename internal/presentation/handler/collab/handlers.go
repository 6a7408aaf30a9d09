package collab

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/infrastructure/auth"
	"github.com/inkstream/collab/internal/infrastructure/configs"
	"github.com/inkstream/collab/internal/infrastructure/json"
	"github.com/inkstream/collab/internal/infrastructure/ws"
)

type Handler struct {
	verifier *auth.TokenVerifier
	core     *ws.Core
	logger   *zap.SugaredLogger
	cfg      configs.CollabConfig
}

func NewHandler(
	verifier *auth.TokenVerifier,
	core *ws.Core,
	logger *zap.SugaredLogger,
	cfg configs.CollabConfig,
) *Handler {
	return &Handler{
		verifier: verifier,
		core:     core,
		logger:   logger,
		cfg:      cfg,
	}
}

// ServeHandshake authenticates the presented credential and, only on
// success, upgrades the request to a websocket session. Authentication
// happens exactly once per connection; a bad credential means no session and
// no events.
func (h *Handler) ServeHandshake(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		json.WriteUnauthorizedError(w, "Missing credentials")
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warnw("handshake authentication failed", "remote", r.RemoteAddr, "error", err)
		json.WriteUnauthorizedError(w, "Authentication failed")
		return
	}

	conn, err := ws.Upgrade(w, r)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := ws.NewClient(conn, uuid.NewString(), userID, h.cfg.SendBuffer, h.cfg.MaxMessageSize)
	h.core.Attach(client)

	h.logger.Infow("client connected", "connectionId", client.ID, "userId", userID)
}

// bearerToken pulls the credential from the token query parameter or the
// Authorization header; browser websocket clients cannot set headers, so the
// query parameter comes first.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}

	return ""
}
