package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL       = 30 * 24 * time.Hour
	DefaultKeyPrefix = "cart"

	maxUpdateAttempts = 5
)

// Store persists carts. Update applies fn atomically with respect to other
// updates of the same owner and saves the result unless fn fails.
type Store interface {
	Load(ctx context.Context, owner uuid.UUID) (*Cart, error)
	Update(ctx context.Context, owner uuid.UUID, fn func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, owner uuid.UUID) error
}

// RedisStore keeps each cart as a JSON document under <prefix>:<owner>
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis backed cart store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, prefix: DefaultKeyPrefix}
}

func (s *RedisStore) key(owner uuid.UUID) string {
	return fmt.Sprintf("%s:%s", s.prefix, owner)
}

// Load returns the owner's cart, or an empty one when none is stored
func (s *RedisStore) Load(ctx context.Context, owner uuid.UUID) (*Cart, error) {
	return s.read(ctx, s.client, owner)
}

func (s *RedisStore) read(ctx context.Context, c redis.Cmdable, owner uuid.UUID) (*Cart, error) {
	raw, err := c.Get(ctx, s.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w: %w", domain.ErrTransient, err)
	}

	cart := New(owner)
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	cart.Owner = owner
	return cart, nil
}

// Update runs fn inside an optimistic WATCH transaction, retrying when a
// concurrent writer changed the cart in between
func (s *RedisStore) Update(ctx context.Context, owner uuid.UUID, fn func(*Cart) error) (*Cart, error) {
	key := s.key(owner)
	var updated *Cart

	txf := func(tx *redis.Tx) error {
		cart, err := s.read(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}

		raw, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("failed to encode cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if cart.Empty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = cart
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var de *domain.Error
		if errors.As(err, &de) || errors.Is(err, domain.ErrTransient) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save cart: %w: %w", domain.ErrTransient, err)
	}
	return nil, domain.NewError(domain.ErrTransient, "cart is being modified concurrently, try again")
}

// Delete removes the owner's cart
func (s *RedisStore) Delete(ctx context.Context, owner uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w: %w", domain.ErrTransient, err)
	}
	return nil
}

// MemoryStore keeps carts in process memory
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, owner uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(owner)
}

func (s *MemoryStore) load(owner uuid.UUID) (*Cart, error) {
	cart := New(owner)
	raw, ok := s.carts[owner]
	if !ok {
		return cart, nil
	}
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return cart, nil
}

func (s *MemoryStore) Update(ctx context.Context, owner uuid.UUID, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	s.carts[owner] = raw
	return cart, nil
}

func (s *MemoryStore) Delete(ctx context.Context, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}
