package httpapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"poker-lab/domain"
	apperrors "poker-lab/errors"
	"poker-lab/transport"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
	roomCodeRetries  = 5
)

func newRoomCode() (domain.RoomCode, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return domain.RoomCode(buf), nil
}

type roomResponse struct {
	RoomCode     string    `json:"room_code"`
	OwnerID      string    `json:"created_by"`
	Status       int       `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Participants int       `json:"participants"`
}

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(r.Context())
	if !ok {
		a.writeError(w, apperrors.ErrInvalidCredentials)
		return
	}

	rec := domain.RoomRecord{
		OwnerID:   claims.Subject,
		Status:    domain.RoomOpen,
		CreatedAt: time.Now().UTC(),
	}
	// Codes collide rarely enough that a handful of retries is plenty. Only
	// a collision warrants a new code; any other store failure surfaces.
	var err error
	for attempt := 0; attempt < roomCodeRetries; attempt++ {
		if rec.Code, err = newRoomCode(); err != nil {
			a.writeError(w, err)
			return
		}
		err = a.rooms.CreateRoom(rec)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			break
		}
	}
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.log.Info("Room created", "room", string(rec.Code), "owner", rec.OwnerID)
	writeJSON(w, http.StatusCreated, roomResponse{
		RoomCode:  string(rec.Code),
		OwnerID:   rec.OwnerID,
		Status:    int(rec.Status),
		CreatedAt: rec.CreatedAt,
	})
}

// myRooms lists the rooms the caller created, newest first: the home
// screen's "your rooms" listing.
func (a *API) myRooms(w http.ResponseWriter, r *http.Request) {
	claims, ok := callerClaims(r.Context())
	if !ok {
		a.writeError(w, apperrors.ErrInvalidCredentials)
		return
	}

	recs, err := a.rooms.ListRoomsByOwner(claims.Subject)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(recs, func(rec domain.RoomRecord, _ int) roomResponse {
		return roomResponse{
			RoomCode:  string(rec.Code),
			OwnerID:   rec.OwnerID,
			Status:    int(rec.Status),
			CreatedAt: rec.CreatedAt,
		}
	}))
}

func (a *API) getRoom(w http.ResponseWriter, r *http.Request) {
	code := domain.RoomCode(chi.URLParam(r, "code"))
	rec, err := a.rooms.GetRoom(code)
	if err != nil {
		a.writeError(w, err)
		return
	}

	resp := roomResponse{
		RoomCode:  string(rec.Code),
		OwnerID:   rec.OwnerID,
		Status:    int(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
	// Headcount only exists while a session runs.
	if session, err := a.registry.Lookup(code); err == nil {
		if snap, err := session.View(r.Context()); err == nil {
			resp.Participants = snap.ParticipantCount
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// listQuestions answers from the live session when one runs, so the reader
// sees exactly what the room is broadcasting; otherwise it falls back to
// the persisted state of the last session.
func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	code := domain.RoomCode(chi.URLParam(r, "code"))
	claims, ok := callerClaims(r.Context())
	if !ok {
		a.writeError(w, apperrors.ErrInvalidCredentials)
		return
	}

	if session, err := a.registry.Lookup(code); err == nil {
		snap, err := session.View(r.Context())
		if err == nil {
			payloads := lo.Map(snap.Questions, func(v domain.QuestionView, _ int) transport.QuestionPayload {
				p := transport.PayloadFromView(v)
				p.Voted = lo.Contains(snap.Voters[v.ID], claims.Subject)
				return p
			})
			writeJSON(w, http.StatusOK, payloads)
			return
		}
	}

	if _, err := a.rooms.GetRoom(code); err != nil {
		a.writeError(w, err)
		return
	}
	memento, found, err := a.rooms.LoadState(code)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, []transport.QuestionPayload{})
		return
	}

	payloads := lo.Map(memento.Questions, func(qm domain.QuestionMemento, _ int) transport.QuestionPayload {
		return transport.QuestionPayload{
			QuestionID:    qm.ID.String(),
			QuestionTitle: qm.Title,
			QuestionText:  qm.Text,
			VoteCount:     len(qm.Votes),
			IsEstimated:   qm.Closed,
			Estimate:      int(qm.Estimate),
			NoVotes:       qm.NoVotes,
			CreatedAt:     qm.CreatedAt,
			Voted: lo.ContainsBy(qm.Votes, func(v domain.Vote) bool {
				return v.UserID == claims.Subject
			}),
		}
	})
	writeJSON(w, http.StatusOK, payloads)
}

func (a *API) activateRoom(w http.ResponseWriter, r *http.Request) {
	a.setStatus(w, r, domain.RoomOpen)
}

func (a *API) deactivateRoom(w http.ResponseWriter, r *http.Request) {
	a.setStatus(w, r, domain.RoomDeactivated)
}

// setStatus flips the durable activation flag. A live session picks the new
// status up on its next restore; connected participants are not kicked.
func (a *API) setStatus(w http.ResponseWriter, r *http.Request, status domain.RoomStatus) {
	code := domain.RoomCode(chi.URLParam(r, "code"))
	claims, ok := callerClaims(r.Context())
	if !ok {
		a.writeError(w, apperrors.ErrInvalidCredentials)
		return
	}

	rec, err := a.rooms.GetRoom(code)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if rec.OwnerID != claims.Subject {
		a.writeError(w, apperrors.ErrForbidden)
		return
	}
	if err := a.rooms.SetRoomStatus(code, status); err != nil {
		a.writeError(w, err)
		return
	}

	a.log.Info("Room status changed", "room", string(code), "status", int(status))
	writeJSON(w, http.StatusOK, roomResponse{
		RoomCode:  string(rec.Code),
		OwnerID:   rec.OwnerID,
		Status:    int(status),
		CreatedAt: rec.CreatedAt,
	})
}

type userResponse struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.GetUser(chi.URLParam(r, "user_id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		UserID:    user.ID,
		UserName:  user.Name,
		CreatedAt: user.CreatedAt,
	})
}
