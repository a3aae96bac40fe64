package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"examsim-server/exam"
	"examsim-server/models"
)

const (
	examSetPrefix  = "examset:"
	examSetIndex   = "examsets"
	errorLogKey    = "examsim:error_logs"
	adminEventsKey = "examsim:admin_events"
	maxLogEntries  = 1000
)

// RedisStore keeps exam sets in Redis with an expiry, for deployments that
// treat assembled exams as short-lived sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis establishes a connection to Redis
func OpenRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Printf("Connected to Redis at %s", addr)
	return NewRedisStore(client, ttl), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) SaveExamSet(ctx context.Context, set *models.ExamSet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, examSetPrefix+set.ID, body, s.ttl)
	pipe.ZAdd(ctx, examSetIndex, redis.Z{Score: float64(set.CreatedAt.UnixNano()), Member: set.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	return nil
}

func (s *RedisStore) GetExamSet(ctx context.Context, id string) (*models.ExamSet, error) {
	body, err := s.client.Get(ctx, examSetPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exam set %s: %w", id, err)
	}
	var set models.ExamSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to decode exam set %s: %w", id, err)
	}
	return &set, nil
}

// ListExamSets walks the index newest first and prunes ids whose key expired.
func (s *RedisStore) ListExamSets(ctx context.Context, limit int) ([]models.ExamSetInfo, error) {
	limit = clampLimit(limit)
	ids, err := s.client.ZRevRange(ctx, examSetIndex, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query exam set index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = examSetPrefix + id
	}
	bodies, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exam sets: %w", err)
	}

	var out []models.ExamSetInfo
	var expired []any
	for i, b := range bodies {
		str, ok := b.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var set models.ExamSet
		if err := json.Unmarshal([]byte(str), &set); err != nil {
			return nil, fmt.Errorf("failed to decode exam set %s: %w", ids[i], err)
		}
		out = append(out, infoOf(&set))
	}
	if len(expired) > 0 {
		s.client.ZRem(ctx, examSetIndex, expired...)
	}
	return out, nil
}

func (s *RedisStore) pushLog(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, body)
	pipe.LTrim(ctx, key, 0, maxLogEntries-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) LogError(ctx context.Context, source, section, errMsg, detail string) {
	entry := models.ErrorLog{
		Timestamp:    time.Now().UTC(),
		Source:       source,
		Section:      section,
		ErrorMessage: errMsg,
		Detail:       detail,
	}
	if err := s.pushLog(ctx, errorLogKey, entry); err != nil {
		logStoreFailure("error log", err, errMsg)
	}
}

func (s *RedisStore) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	event := models.AdminEvent{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Target:    target,
		Notes:     notes,
	}
	if err := s.pushLog(ctx, adminEventsKey, event); err != nil {
		logStoreFailure("admin event", err, fmt.Sprintf("%s by %s on %s", action, actor, target))
	}
}

func (s *RedisStore) RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	var out []models.ErrorLog
	err := s.readLog(ctx, errorLogKey, limit, func(b []byte) error {
		var e models.ErrorLog
		if err := json.Unmarshal(b, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (s *RedisStore) RecentAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	var out []models.AdminEvent
	err := s.readLog(ctx, adminEventsKey, limit, func(b []byte) error {
		var e models.AdminEvent
		if err := json.Unmarshal(b, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (s *RedisStore) readLog(ctx context.Context, key string, limit int, decode func([]byte) error) error {
	items, err := s.client.LRange(ctx, key, 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	for _, item := range items {
		if err := decode([]byte(item)); err != nil {
			return fmt.Errorf("failed to decode %s entry: %w", key, err)
		}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
