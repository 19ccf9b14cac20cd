package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/shared/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// staleClientGrace - сколько старый клиент живет после переподключения,
// чтобы успели завершиться команды, начатые на нем другими горутинами.
const staleClientGrace = 30 * time.Second

// RedisConn выдает живой клиент Redis.
type RedisConn interface {
	Client(ctx context.Context) (*redis.Client, error)
}

// RedisProvider owns the process-wide Redis client.
// The client is created on first use and pinged lazily: when the last
// successful check is older than the health-check interval, Client pings it
// and recreates it if the ping fails.
type RedisProvider struct {
	opts           *redis.Options
	healthInterval time.Duration
	logger         *zap.Logger

	mu          sync.Mutex
	client      *redis.Client
	lastHealthy time.Time
	now         func() time.Time
	retireAfter time.Duration
}

var _ RedisConn = (*RedisProvider)(nil)

// NewRedisProvider не открывает соединение, это делает первый вызов Client.
func NewRedisProvider(opts *redis.Options, healthInterval time.Duration, logger *zap.Logger) *RedisProvider {
	if healthInterval <= 0 {
		healthInterval = 30 * time.Second
	}
	return &RedisProvider{
		opts:           opts,
		healthInterval: healthInterval,
		logger:         logger.Named("RedisProvider"),
		now:            time.Now,
		retireAfter:    staleClientGrace,
	}
}

// Client returns a healthy client or an error wrapping models.ErrStoreUnavailable.
func (p *RedisProvider) Client(ctx context.Context) (*redis.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		p.client = redis.NewClient(p.opts)
		p.lastHealthy = time.Time{}
		p.logger.Info("Redis client created", zap.String("addr", p.opts.Addr), zap.Int("db", p.opts.DB))
	}
	if p.now().Sub(p.lastHealthy) < p.healthInterval {
		return p.client, nil
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		p.logger.Warn("Redis health check failed, reconnecting", zap.String("addr", p.opts.Addr), zap.Error(err))
		stale := p.client
		p.client = redis.NewClient(p.opts)
		p.retire(stale)
		if err := p.client.Ping(ctx).Err(); err != nil {
			p.logger.Error("Redis is unreachable after reconnect", zap.String("addr", p.opts.Addr), zap.Error(err))
			return nil, fmt.Errorf("redis ping: %w: %w", models.ErrStoreUnavailable, err)
		}
		p.logger.Info("Redis client reconnected", zap.String("addr", p.opts.Addr))
	}
	p.lastHealthy = p.now()
	return p.client, nil
}

// retire закрывает старый клиент не сразу: его указатель может быть у других горутин.
func (p *RedisProvider) retire(stale *redis.Client) {
	time.AfterFunc(p.retireAfter, func() {
		if err := stale.Close(); err != nil {
			p.logger.Debug("Error closing stale Redis client", zap.Error(err))
		}
	})
}

// Ping forces a health check regardless of the interval. Used by /health.
func (p *RedisProvider) Ping(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		p.mu.Lock()
		p.lastHealthy = time.Time{}
		p.mu.Unlock()
		return fmt.Errorf("redis ping: %w: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *RedisProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
