package orders

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore protège contre la double soumission d'un même checkout :
// la clé est réclamée avant la création de la commande, complétée avec l'ID
// de la commande après, et libérée si rien n'a été créé.
type IdempotencyStore interface {
	// Claim réserve la clé. Retourne (false, valeur existante) si déjà réclamée.
	Claim(ctx context.Context, key string) (bool, string, error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

const (
	idemKeyPrefix = "checkout:idem:"
	idemPending   = "pending"
	idemClaimTTL  = 24 * time.Hour
)

// RedisIdempotencyStore implémente la garde via SetNX
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string) (bool, string, error) {
	ok, err := s.client.SetNX(ctx, idemKeyPrefix+key, idemPending, idemClaimTTL).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}

	existing, err := s.client.Get(ctx, idemKeyPrefix+key).Result()
	if err != nil {
		return false, "", err
	}
	return false, existing, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	return s.client.Set(ctx, idemKeyPrefix+key, orderID, idemClaimTTL).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idemKeyPrefix+key).Err()
}
