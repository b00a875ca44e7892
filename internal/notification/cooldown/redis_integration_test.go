//go:build integration

package cooldown_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mosolo/internal/notification/cooldown"
	"mosolo/pkg/testutil/containers"
)

// =============================================================================
// Redis Cooldown Integration Suite
// =============================================================================

type RedisCooldownSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	cooldown *cooldown.Redis
}

func TestRedisCooldownSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCooldownSuite))
}

func (s *RedisCooldownSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cooldown = cooldown.NewRedis(s.redis.Client)
}

func (s *RedisCooldownSuite) SetupTest() {
	s.Require().NoError(s.redis.Client.FlushAll(context.Background()).Err())
}

func (s *RedisCooldownSuite) TestAcquire() {
	ctx := context.Background()

	free, err := s.cooldown.Acquire(ctx, "CELEBRATION:c1:SERVICE/BOMBE", time.Minute)
	s.Require().NoError(err)
	s.True(free)

	s.Run("held slot refuses", func() {
		free, err := s.cooldown.Acquire(ctx, "CELEBRATION:c1:SERVICE/BOMBE", time.Minute)
		s.Require().NoError(err)
		s.False(free)
	})

	s.Run("distinct slots are independent", func() {
		free, err := s.cooldown.Acquire(ctx, "PROGRESS:c1:SERVICE/BOMBE", time.Minute)
		s.Require().NoError(err)
		s.True(free)
	})

	s.Run("expiry frees the slot", func() {
		free, err := s.cooldown.Acquire(ctx, "CELEBRATION:c2:SERVICE/BOMBE", 100*time.Millisecond)
		s.Require().NoError(err)
		s.True(free)

		time.Sleep(200 * time.Millisecond)
		free, err = s.cooldown.Acquire(ctx, "CELEBRATION:c2:SERVICE/BOMBE", time.Minute)
		s.Require().NoError(err)
		s.True(free)
	})
}

func (s *RedisCooldownSuite) TestConcurrentAcquireGrantsOne() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var granted atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			free, err := s.cooldown.Acquire(ctx, "PROGRESS:race:ACCOUNT/S02", time.Minute)
			s.NoError(err)
			if free {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), granted.Load())
}
