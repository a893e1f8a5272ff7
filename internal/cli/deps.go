package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/infra/memory"
	"quiz-session-engine/internal/infra/postgres"
	"quiz-session-engine/internal/infra/rabbitmq"
	redisstore "quiz-session-engine/internal/infra/redis"
)

// deps holds the backing stores selected by configuration.
type deps struct {
	redis     *redis.Client
	pool      *pgxpool.Pool
	bunDB     *bun.DB
	publisher *rabbitmq.Publisher

	questions app.QuestionRepository
	sessions  app.SessionRepository
	history   app.HistoryRepository
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, errors.Wrap(err, "connect postgres")
		}
		d.pool = pool
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if d.pool != nil {
		loader = postgres.NewQuestionLoader(d.pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if d.redis != nil {
		d.questions = redisstore.NewQuestionRepository(d.redis, loader, quizTTL)
		d.sessions = redisstore.NewSessionStore(d.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		d.questions = memory.NewQuestionRepository(loader, quizTTL)
		d.sessions = memory.NewSessionStore()
	}

	switch cfg.History.Backend {
	case config.BackendMemory, "":
		d.history = memory.NewHistoryStore(cfg.History.Cap)
	case config.BackendRedis:
		if d.redis == nil {
			d.close()
			return nil, errors.New("redis history backend requires redis.addr")
		}
		d.history = redisstore.NewHistoryStore(d.redis, cfg.History.Cap)
	case config.BackendPostgres:
		if cfg.Postgres.URL == "" {
			d.close()
			return nil, errors.New("postgres history backend requires postgres.url")
		}
		d.bunDB = postgres.OpenBun(cfg.Postgres.URL)
		d.history = postgres.NewHistoryStore(d.bunDB, cfg.History.Cap)
	default:
		d.close()
		return nil, errors.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	return d, nil
}

// dialPublisher connects the completion publisher when RabbitMQ is configured.
func (d *deps) dialPublisher(cfg config.Config) error {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	pub, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		return errors.Wrap(err, "dial rabbitmq")
	}
	d.publisher = pub
	return nil
}

func (d *deps) close() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			logrus.WithError(err).Warn("close rabbitmq publisher")
		}
	}
	if d.bunDB != nil {
		_ = d.bunDB.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}
