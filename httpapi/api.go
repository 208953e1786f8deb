// Package httpapi is the REST surface: accounts, room records and the
// read-only question listing. Live room traffic goes over the websocket
// route; everything here works against the stores and, when one is running,
// the room's session snapshot.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"poker-lab/auth"
	"poker-lab/contract"
	"poker-lab/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	log      *slog.Logger
	rooms    contract.RoomStore
	users    contract.UserStore
	registry contract.SessionRegistry
	issuer   *auth.TokenIssuer
}

func New(log *slog.Logger, rooms contract.RoomStore, users contract.UserStore,
	registry contract.SessionRegistry, issuer *auth.TokenIssuer) *API {
	return &API{log: log, rooms: rooms, users: users, registry: registry, issuer: issuer}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Websocket connections live as long as the participant stays; no
	// request timeout applies to them.
	r.Get("/ws/{room_code}", transport.Handler(a.log, a.registry))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/auth/register", a.register)
		r.Post("/auth/login", a.login)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/rooms/create", a.createRoom)
			r.Get("/rooms/created/myrooms", a.myRooms)
			r.Get("/rooms/{code}", a.getRoom)
			r.Get("/rooms/{code}/questions", a.listQuestions)
			r.Put("/rooms/activate/{code}", a.activateRoom)
			r.Put("/rooms/deactivate/{code}", a.deactivateRoom)
			r.Get("/rooms/users/{user_id}", a.getUser)
		})
	})
	return r
}
