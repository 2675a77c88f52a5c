//go:build integration

package expiry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credreg/internal/cert/store/expiry"
	"credreg/pkg/domain"
	"credreg/pkg/testutil/containers"
)

type RedisIndexSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	index *expiry.RedisIndex
}

func TestRedisIndexSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisIndexSuite))
}

func (s *RedisIndexSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.index = expiry.NewRedisIndex(s.redis.Client, "credreg-test")
}

func (s *RedisIndexSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func key(certTypeID domain.CertTypeID, owner string) domain.CredentialKey {
	return domain.CredentialKey{CertTypeID: certTypeID, Owner: domain.AccountID(owner)}
}

func (s *RedisIndexSuite) TestDueBeforeIsExclusive() {
	ctx := context.Background()
	s.Require().NoError(s.index.Put(ctx, key(1, "acct-a"), 100))
	s.Require().NoError(s.index.Put(ctx, key(1, "acct-b"), 200))

	due, err := s.index.DueBefore(ctx, 100)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.index.DueBefore(ctx, 101)
	s.Require().NoError(err)
	s.Equal([]domain.CredentialKey{key(1, "acct-a")}, due)

	due, err = s.index.DueBefore(ctx, 1000)
	s.Require().NoError(err)
	s.Len(due, 2)
}

func (s *RedisIndexSuite) TestPutOverwritesScore() {
	ctx := context.Background()
	s.Require().NoError(s.index.Put(ctx, key(1, "acct-a"), 100))
	s.Require().NoError(s.index.Put(ctx, key(1, "acct-a"), 500))

	due, err := s.index.DueBefore(ctx, 200)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.index.DueBefore(ctx, 501)
	s.Require().NoError(err)
	s.Equal([]domain.CredentialKey{key(1, "acct-a")}, due)
}

func (s *RedisIndexSuite) TestRemove() {
	ctx := context.Background()
	s.Require().NoError(s.index.Put(ctx, key(1, "acct-a"), 100))
	s.Require().NoError(s.index.Remove(ctx, key(1, "acct-a")))
	s.Require().NoError(s.index.Remove(ctx, key(1, "acct-a")))

	due, err := s.index.DueBefore(ctx, 1000)
	s.Require().NoError(err)
	s.Empty(due)
}

func (s *RedisIndexSuite) TestMemberEncodingRoundTrip() {
	ctx := context.Background()
	owner := "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	s.Require().NoError(s.index.Put(ctx, key(42, owner), 100))

	due, err := s.index.DueBefore(ctx, 101)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(domain.CertTypeID(42), due[0].CertTypeID)
	s.Equal(domain.AccountID(owner), due[0].Owner)
}
