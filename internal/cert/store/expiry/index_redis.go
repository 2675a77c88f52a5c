package expiry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"credreg/pkg/domain"
)

// RedisIndex backs the expiry index with a sorted set scored by expiry
// moment, so DueBefore is a single ZRANGEBYSCORE whose cost tracks the
// number of due entries.
type RedisIndex struct {
	client redis.Cmdable
	key    string
}

func NewRedisIndex(client redis.Cmdable, keyPrefix string) *RedisIndex {
	if keyPrefix == "" {
		keyPrefix = "credreg"
	}
	return &RedisIndex{client: client, key: keyPrefix + ":expiry"}
}

func (s *RedisIndex) Put(ctx context.Context, key domain.CredentialKey, expiresAt domain.Moment) error {
	member := encodeMember(key)
	if err := s.client.ZAdd(ctx, s.key, redis.Z{Score: float64(expiresAt), Member: member}).Err(); err != nil {
		return fmt.Errorf("zadd expiry: %w", err)
	}
	return nil
}

func (s *RedisIndex) Remove(ctx context.Context, key domain.CredentialKey) error {
	if err := s.client.ZRem(ctx, s.key, encodeMember(key)).Err(); err != nil {
		return fmt.Errorf("zrem expiry: %w", err)
	}
	return nil
}

func (s *RedisIndex) DueBefore(ctx context.Context, threshold domain.Moment) ([]domain.CredentialKey, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(int64(threshold), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore expiry: %w", err)
	}

	out := make([]domain.CredentialKey, 0, len(members))
	for _, m := range members {
		key, err := decodeMember(m)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

func encodeMember(key domain.CredentialKey) string {
	return key.CertTypeID.String() + "/" + string(key.Owner)
}

func decodeMember(member string) (domain.CredentialKey, error) {
	id, owner, ok := strings.Cut(member, "/")
	if !ok {
		return domain.CredentialKey{}, fmt.Errorf("malformed expiry member %q", member)
	}
	certTypeID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return domain.CredentialKey{}, fmt.Errorf("malformed expiry member %q: %w", member, err)
	}
	return domain.CredentialKey{
		CertTypeID: domain.CertTypeID(certTypeID),
		Owner:      domain.AccountID(owner),
	}, nil
}
