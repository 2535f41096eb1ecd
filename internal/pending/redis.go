package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"pos-service/internal/models"
)

const (
	pendingSetKey = "pending:bills"
	failedSetKey  = "failed:bills"
)

// RedisStore is the durable pending store used on a real terminal. Records
// live as JSON strings with a set of bill IDs as the index; Put/Remove pair
// the value write with the index update in one MULTI/EXEC so a record is
// never half-written.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func pendingKey(billID string) string { return "pending:bill:" + billID }
func failedKey(billID string) string  { return "failed:bill:" + billID }

// Put stores a sale record keyed by bill ID
func (s *RedisStore) Put(ctx context.Context, record *models.SaleRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal sale record: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, pendingKey(record.BillID), data, 0)
		pipe.SAdd(ctx, pendingSetKey, record.BillID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to queue sale %s: %w", record.BillID, err)
	}
	return nil
}

// ListAll returns every queued record. Index entries whose value is missing
// (interrupted remove) are skipped.
func (s *RedisStore) ListAll(ctx context.Context) ([]models.SaleRecord, error) {
	ids, err := s.rdb.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bills: %w", err)
	}

	records := make([]models.SaleRecord, 0, len(ids))
	for _, id := range ids {
		data, err := s.rdb.Get(ctx, pendingKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pending sale %s: %w", id, err)
		}
		var rec models.SaleRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending sale %s: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes a record by bill ID. Removing an absent ID is a no-op.
func (s *RedisStore) Remove(ctx context.Context, billID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, pendingKey(billID))
		pipe.SRem(ctx, pendingSetKey, billID)
		return nil
	})
	return err
}

// Fail moves a record from the pending queue to the dead letter
func (s *RedisStore) Fail(ctx context.Context, record *models.SaleRecord, reason string) error {
	failed := models.FailedSale{
		Record:   *record,
		Reason:   reason,
		FailedAt: time.Now(),
	}
	data, err := json.Marshal(&failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed sale: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, failedKey(record.BillID), data, 0)
		pipe.SAdd(ctx, failedSetKey, record.BillID)
		pipe.Del(ctx, pendingKey(record.BillID))
		pipe.SRem(ctx, pendingSetKey, record.BillID)
		return nil
	})
	return err
}

// ListFailed returns all dead-lettered sales
func (s *RedisStore) ListFailed(ctx context.Context) ([]models.FailedSale, error) {
	ids, err := s.rdb.SMembers(ctx, failedSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failed bills: %w", err)
	}

	out := make([]models.FailedSale, 0, len(ids))
	for _, id := range ids {
		data, err := s.rdb.Get(ctx, failedKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read failed sale %s: %w", id, err)
		}
		var f models.FailedSale
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed sale %s: %w", id, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Requeue moves a dead-lettered sale back into the pending queue
func (s *RedisStore) Requeue(ctx context.Context, billID string) error {
	data, err := s.rdb.Get(ctx, failedKey(billID)).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read failed sale %s: %w", billID, err)
	}

	var f models.FailedSale
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal failed sale %s: %w", billID, err)
	}
	recData, err := json.Marshal(&f.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal sale record: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, pendingKey(billID), recData, 0)
		pipe.SAdd(ctx, pendingSetKey, billID)
		pipe.Del(ctx, failedKey(billID))
		pipe.SRem(ctx, failedSetKey, billID)
		return nil
	})
	return err
}

// Dismiss drops a dead-lettered sale for good
func (s *RedisStore) Dismiss(ctx context.Context, billID string) error {
	exists, err := s.rdb.Exists(ctx, failedKey(billID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, failedKey(billID))
		pipe.SRem(ctx, failedSetKey, billID)
		return nil
	})
	return err
}
