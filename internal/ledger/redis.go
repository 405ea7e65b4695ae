package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

const (
	projectKeyPrefix   = "garden:project:" // garden:project:{id} -> encoded record
	balanceKeyPrefix   = "garden:balance:" // garden:balance:{account} -> decimal uint64
	eventChannelPrefix = "garden:events:"  // Pub/Sub channel per project: garden:events:{id}

	// maxTxRetries bounds optimistic retries when a watched key changes under us.
	maxTxRetries = 5
)

// RedisStore keeps records and balances in Redis. Updates use WATCH/MULTI so a commit
// fails and is retried whenever another writer touched the record or a balance it read.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the connection for other Redis-backed components.
func (s *RedisStore) Client() *redis.Client { return s.client }

// Insert creates the record with SETNX so two racing creators cannot both win.
func (s *RedisStore) Insert(ctx context.Context, p *domain.Project) error {
	data, err := encodeRecord(p)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.projectKey(p.ID()), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Get retrieves a record by its identifier.
func (s *RedisStore) Get(ctx context.Context, id domain.Pubkey) (*domain.Project, error) {
	data, err := s.client.Get(ctx, s.projectKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeRecord(data)
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, id domain.Pubkey, fn func(tx Tx) error) (*domain.Project, error) {
	key := s.projectKey(id)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var committed *domain.Project
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			data, err := rtx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return domain.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get project: %w", err)
			}
			p, err := decodeRecord(data)
			if err != nil {
				return err
			}

			utx := newTx(p, func(account domain.Pubkey) (uint64, error) {
				bkey := s.balanceKey(account)
				if err := rtx.Watch(ctx, bkey).Err(); err != nil {
					return 0, fmt.Errorf("failed to watch balance: %w", err)
				}
				return readBalance(ctx, rtx, bkey)
			})
			if err := fn(utx); err != nil {
				return err
			}

			encoded, err := encodeRecord(utx.project)
			if err != nil {
				return err
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				for _, c := range utx.book.changes() {
					pipe.Set(ctx, s.balanceKey(c.account), strconv.FormatUint(c.amount, 10), 0)
				}
				return nil
			})
			if err != nil {
				return err
			}
			committed = utx.project
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, id, committed)
		return committed, nil
	}

	return nil, domain.ErrConflict
}

// Balance implements Store.
func (s *RedisStore) Balance(ctx context.Context, account domain.Pubkey) (uint64, error) {
	return readBalance(ctx, s.client, s.balanceKey(account))
}

// Mint implements Store.
func (s *RedisStore) Mint(ctx context.Context, account domain.Pubkey, amount uint64) error {
	key := s.balanceKey(account)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			cur, err := readBalance(ctx, rtx, key)
			if err != nil {
				return err
			}
			next, err := addBalance(cur, amount)
			if err != nil {
				return err
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, strconv.FormatUint(next, 10), 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.ErrConflict
}

// Subscribe returns a subscription to committed updates of the project at id.
func (s *RedisStore) Subscribe(ctx context.Context, id domain.Pubkey) *redis.PubSub {
	return s.client.Subscribe(ctx, s.eventChannel(id))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// publish is best effort: the update has already committed.
func (s *RedisStore) publish(ctx context.Context, id domain.Pubkey, p *domain.Project) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.client.Publish(ctx, s.eventChannel(id), payload)
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readBalance(ctx context.Context, c stringGetter, key string) (uint64, error) {
	v, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance at %s: %w", key, err)
	}
	return n, nil
}

// Helper methods for key generation
func (s *RedisStore) projectKey(id domain.Pubkey) string {
	return projectKeyPrefix + id.String()
}

func (s *RedisStore) balanceKey(account domain.Pubkey) string {
	return balanceKeyPrefix + account.String()
}

func (s *RedisStore) eventChannel(id domain.Pubkey) string {
	return eventChannelPrefix + id.String()
}
