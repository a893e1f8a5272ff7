package http

import (
	"encoding/json"
	"github.com/pkg/errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

var errActionNotAllowed = errors.New("action not allowed by quiz settings")

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request, starts one quiz session for the connection and
// drives it with client actions until the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	setID := r.URL.Query().Get("questionSetId")
	subject := r.URL.Query().Get("subject")
	if setID == "" {
		http.Error(w, "missing questionSetId", http.StatusBadRequest)
		return
	}
	limit, err := parseTimeLimit(r.URL.Query().Get("timeLimit"))
	if err != nil {
		http.Error(w, "invalid timeLimit", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	started, err := h.service.Start(r.Context(), app.StartRequest{
		QuestionSetID: setID,
		Subject:       subject,
		TimeLimit:     limit,
	})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := started.Session.ID
	settings := started.Session.Settings
	defer h.service.Close(r.Context(), sessionID)

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logrus.WithError(err).WithField("session", sessionID).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		resultSent := false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "snapshot", Payload: newSnapshotView(snap)}}
				if snap.Session.State == domain.StateFinished && !resultSent {
					resultSent = true
					msgs = append(msgs, outboundMessage[any]{Type: "result", Payload: newResult(snap)})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(r, sessionID, settings, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle maps one client message onto session actions. Settings gates are
// enforced here; the session itself accepts any action.
func (h *WSHandler) handle(r *http.Request, sessionID string, settings domain.QuizSettings, msg inboundMessage) error {
	ctx := r.Context()
	var action app.Action

	switch msg.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.OptionID == "" {
			return errors.New("invalid select payload")
		}
		action = app.SelectOption{OptionID: payload.OptionID}
	case "mark", "unmark":
		if !settings.AllowMarkForReview {
			return errActionNotAllowed
		}
		action = app.MarkForReview{}
		if msg.Type == "unmark" {
			action = app.UnmarkQuestion{}
		}
	case "skip":
		if !settings.AllowSkip {
			return errActionNotAllowed
		}
		snap, err := h.service.Dispatch(ctx, sessionID, app.SkipQuestion{})
		if err != nil {
			return err
		}
		if snap.Navigation.CanGoNext {
			_, err = h.service.Dispatch(ctx, sessionID, app.NextQuestion{})
		}
		return err
	case "clear":
		action = app.ClearAnswer{}
	case "next":
		action = app.NextQuestion{}
	case "previous":
		if !settings.AllowReview {
			return errActionNotAllowed
		}
		action = app.PreviousQuestion{}
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return errors.New("invalid goto payload")
		}
		if !settings.AllowReview {
			current, err := h.service.Snapshot(ctx, sessionID)
			if err != nil {
				return err
			}
			if payload.Index < current.Session.CurrentIndex {
				return errActionNotAllowed
			}
		}
		action = app.GoToQuestion{Index: payload.Index}
	case "pause":
		action = app.Pause{}
	case "resume":
		action = app.Resume{}
	case "submit":
		action = app.Submit{}
	default:
		return errors.New("unsupported message type")
	}

	_, err := h.service.Dispatch(ctx, sessionID, action)
	return err
}

func newResult(snap app.Snapshot) resultPayload {
	res := resultPayload{SessionID: snap.Session.ID, Score: snap.Session.Score}
	if snap.History != nil {
		agg := snap.History.Aggregate
		res.Aggregate = &agg
	}
	return res
}

// parseTimeLimit accepts whole seconds ("90") or a Go duration ("1m30s").
func parseTimeLimit(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, errors.New("negative time limit")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, errors.New("invalid time limit")
	}
	return d, nil
}
