package http

import (
	"encoding/json"
	"github.com/pkg/errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

// NewRouter wires the health, websocket and history endpoints.
func NewRouter(service *app.QuizService) http.Handler {
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Get("/subjects/{subject}/history", historyHandler(service))
	return r
}

func historyHandler(service *app.QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := chi.URLParam(r, "subject")
		log, err := service.History(r.Context(), subject)
		switch {
		case errors.Is(err, domain.ErrMissingSubject):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			logrus.WithError(err).WithField("subject", subject).Warn("load history")
			http.Error(w, "history unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(log)
	}
}
