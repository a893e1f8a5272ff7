package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-session-engine/internal/domain"
)

// DefaultQueue receives session.completed events.
const DefaultQueue = "quiz.session.completed"

// SessionCompletedEvent is the message published when a session finishes.
type SessionCompletedEvent struct {
	Type          string                   `json:"type"`
	SessionID     string                   `json:"sessionId"`
	QuestionSetID string                   `json:"questionSetId"`
	Subject       string                   `json:"subject"`
	Score         domain.ScoreSummary      `json:"score"`
	Passed        bool                     `json:"passed"`
	AutoSubmitted bool                     `json:"autoSubmitted"`
	Aggregate     *domain.HistoryAggregate `json:"aggregate,omitempty"`
	FinishedAt    time.Time                `json:"finishedAt"`
}

// NewSessionCompletedEvent builds the event for a finished session.
func NewSessionCompletedEvent(s domain.QuizSession, history *domain.HistoryLog) (SessionCompletedEvent, error) {
	if s.State != domain.StateFinished || s.Score == nil || s.FinishedAt == nil {
		return SessionCompletedEvent{}, errors.Errorf("session %s is not finished", s.ID)
	}
	evt := SessionCompletedEvent{
		Type:          "session.completed",
		SessionID:     s.ID,
		QuestionSetID: s.QuestionSetID,
		Subject:       s.Subject,
		Score: domain.ScoreSummary{
			Obtained:   s.Score.RawScore,
			Total:      s.Score.TotalQuestions,
			Percentage: s.Score.Percentage,
		},
		Passed:        s.Score.Passed,
		AutoSubmitted: s.TimeLimit > 0 && s.Elapsed >= s.TimeLimit,
		FinishedAt:    *s.FinishedAt,
	}
	if history != nil {
		agg := history.Aggregate
		evt.Aggregate = &agg
	}
	return evt, nil
}

// Publisher sends completion events to a durable queue.
type Publisher struct {
	conn  *amqp.Connection
	queue string

	mu      sync.Mutex
	channel *amqp.Channel
}

// Dial connects to the broker at url and declares queue.
func Dial(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "connect to rabbitmq")
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if _, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}
	return &Publisher{conn: conn, channel: channel, queue: queue}, nil
}

// SessionCompleted implements app.CompletionNotifier.
func (p *Publisher) SessionCompleted(ctx context.Context, s domain.QuizSession, history *domain.HistoryLog) error {
	evt, err := NewSessionCompletedEvent(s, history)
	if err != nil {
		return err
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    s.ID,
			Type:         evt.Type,
			Body:         body,
			Timestamp:    evt.FinishedAt,
		},
	)
	return errors.Wrap(err, "publish session completed")
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
