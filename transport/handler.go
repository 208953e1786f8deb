package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"poker-lab/contract"
	"poker-lab/domain"
	apperrors "poker-lab/errors"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// Handler upgrades GET /ws/{room_code} and serves the connection until it
// ends. The session is resolved before the upgrade so an unknown room fails
// with a plain HTTP status instead of a dead socket.
func Handler(log *slog.Logger, registry contract.SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := domain.RoomCode(chi.URLParam(r, "room_code"))

		session, err := registry.GetOrCreate(r.Context(), code)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, apperrors.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Warn("Websocket upgrade failed", "room", string(code), "error", err)
			return
		}

		NewAdapter(log, conn, session).Serve(r.Context())
	}
}
