//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	redisstore "fieldledger/internal/sequence/store/redis"
	"fieldledger/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = redisstore.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestNextStartsAtOneAndIncrements() {
	ctx := context.Background()

	first, err := s.store.Next(ctx, "audit.event")
	s.Require().NoError(err)
	s.Equal(int64(1), first)

	second, err := s.store.Next(ctx, "audit.event")
	s.Require().NoError(err)
	s.Equal(int64(2), second)
}

func (s *RedisStoreSuite) TestNextIsolatesCategories() {
	ctx := context.Background()

	_, err := s.store.Next(ctx, "import.job")
	s.Require().NoError(err)

	value, err := s.store.Next(ctx, "import.job.line")
	s.Require().NoError(err)
	s.Equal(int64(1), value)
}
