package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix      = "session:"
	sessionIndexKeyPrefix = "session_index:"
)

// saveSessionScript пишет сессию и добавляет ее в индекс пользователя.
// TTL индекса только растет, чтобы индекс жил не меньше самой долгой сессии.
var saveSessionScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
local ttl = tonumber(ARGV[2])
if redis.call('PTTL', KEYS[2]) < ttl then
  redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`)

// deleteAllSessionsScript удаляет все сессии из индекса и сам индекс.
// Скрипт выполняется атомарно, поэтому параллельный save попадает либо до, либо после.
// Ключи сессий собираются из ARGV[1], а не передаются в KEYS: это работает на одном
// узле или в sentinel, но не в Redis Cluster (там ключи должны быть в KEYS и в одном слоте).
var deleteAllSessionsScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
local removed = 0
for _, tokenID in ipairs(members) do
  removed = removed + redis.call('DEL', ARGV[1] .. tokenID)
end
redis.call('DEL', KEYS[1])
return removed
`)

var _ interfaces.SessionRepository = (*redisSessionRepository)(nil)

type redisSessionRepository struct {
	conn      RedisConn
	opTimeout time.Duration
	logger    *zap.Logger
}

// NewRedisSessionRepository creates a Redis-backed SessionRepository.
func NewRedisSessionRepository(conn RedisConn, opTimeout time.Duration, logger *zap.Logger) interfaces.SessionRepository {
	return &redisSessionRepository{
		conn:      conn,
		opTimeout: opTimeout,
		logger:    logger.Named("RedisSessionRepo"),
	}
}

func sessionKey(userID, tokenID string) string {
	return sessionKeyPrefix + userID + ":" + tokenID
}

func sessionIndexKey(userID string) string {
	return sessionIndexKeyPrefix + userID
}

// client достает клиента и ограничивает операцию по времени.
func (r *redisSessionRepository) client(ctx context.Context) (*redis.Client, context.Context, context.CancelFunc, error) {
	opCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.opTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, r.opTimeout)
	}
	client, err := r.conn.Client(opCtx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return client, opCtx, cancel, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, models.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("redis %s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func (r *redisSessionRepository) Save(ctx context.Context, userID, tokenID string, meta models.SessionMetadata, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", models.ErrInvalidInput)
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	client, opCtx, cancel, err := r.client(ctx)
	if err != nil {
		return storeError("save", err)
	}
	defer cancel()

	keys := []string{sessionKey(userID, tokenID), sessionIndexKey(userID)}
	if err := saveSessionScript.Run(opCtx, client, keys, payload, ttl.Milliseconds(), tokenID).Err(); err != nil {
		r.logger.Error("Failed to save session", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return storeError("save", err)
	}
	r.logger.Debug("Session saved", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Duration("ttl", ttl))
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, userID, tokenID string) (*models.SessionMetadata, bool, error) {
	client, opCtx, cancel, err := r.client(ctx)
	if err != nil {
		return nil, false, storeError("get", err)
	}
	defer cancel()

	raw, err := client.Get(opCtx, sessionKey(userID, tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		r.logger.Error("Failed to get session", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return nil, false, storeError("get", err)
	}

	var meta models.SessionMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		// Запись есть, значит сессия жива, даже если метаданные битые.
		r.logger.Warn("Corrupted session metadata", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return &models.SessionMetadata{}, true, nil
	}
	return &meta, true, nil
}

// Delete удаляет сессию. removed берется из ответа DEL, поэтому из двух
// параллельных удалений одной записи true получит только одно.
func (r *redisSessionRepository) Delete(ctx context.Context, userID, tokenID string) (bool, error) {
	client, opCtx, cancel, err := r.client(ctx)
	if err != nil {
		return false, storeError("delete", err)
	}
	defer cancel()

	var del *redis.IntCmd
	_, err = client.TxPipelined(opCtx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(opCtx, sessionKey(userID, tokenID))
		pipe.SRem(opCtx, sessionIndexKey(userID), tokenID)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete session", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return false, storeError("delete", err)
	}
	return del.Val() > 0, nil
}

func (r *redisSessionRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	client, opCtx, cancel, err := r.client(ctx)
	if err != nil {
		return 0, storeError("delete all", err)
	}
	defer cancel()

	removed, err := deleteAllSessionsScript.Run(opCtx, client,
		[]string{sessionIndexKey(userID)}, sessionKey(userID, "")).Int64()
	if err != nil {
		r.logger.Error("Failed to delete all sessions", zap.String("userID", userID), zap.Error(err))
		return 0, storeError("delete all", err)
	}
	r.logger.Info("Deleted all sessions for user", zap.String("userID", userID), zap.Int64("count", removed))
	return removed, nil
}

// List возвращает живые сессии пользователя, новые первыми.
// Протухшие элементы индекса вычищаются попутно.
func (r *redisSessionRepository) List(ctx context.Context, userID string) ([]models.SessionRecord, error) {
	client, opCtx, cancel, err := r.client(ctx)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer cancel()

	indexKey := sessionIndexKey(userID)
	tokenIDs, err := client.SMembers(opCtx, indexKey).Result()
	if err != nil {
		r.logger.Error("Failed to read session index", zap.String("userID", userID), zap.Error(err))
		return nil, storeError("list", err)
	}
	if len(tokenIDs) == 0 {
		return []models.SessionRecord{}, nil
	}

	pipe := client.Pipeline()
	gets := make([]*redis.StringCmd, len(tokenIDs))
	ttls := make([]*redis.DurationCmd, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		gets[i] = pipe.Get(opCtx, sessionKey(userID, tokenID))
		ttls[i] = pipe.PTTL(opCtx, sessionKey(userID, tokenID))
	}
	// redis.Nil для отдельных GET ожидаем, проверяем каждую команду ниже.
	if _, err := pipe.Exec(opCtx); err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Error("Failed to read sessions", zap.String("userID", userID), zap.Error(err))
		return nil, storeError("list", err)
	}

	records := make([]models.SessionRecord, 0, len(tokenIDs))
	var stale []interface{}
	for i, tokenID := range tokenIDs {
		raw, err := gets[i].Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, tokenID)
			continue
		}
		if err != nil {
			return nil, storeError("list", err)
		}
		var meta models.SessionMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			r.logger.Warn("Corrupted session metadata", zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		}
		records = append(records, models.SessionRecord{
			UserID:   userID,
			TokenID:  tokenID,
			Metadata: meta,
			TTL:      ttls[i].Val(),
		})
	}

	if len(stale) > 0 {
		if err := client.SRem(opCtx, indexKey, stale...).Err(); err != nil {
			r.logger.Warn("Failed to prune session index", zap.String("userID", userID), zap.Error(err))
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Metadata.CreatedAt.After(records[j].Metadata.CreatedAt)
	})
	return records, nil
}
