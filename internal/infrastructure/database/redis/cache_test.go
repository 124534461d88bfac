package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/LawLens/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, logging.NewNopLogger())
	s.cache = NewRedisCache(client, nil, WithPrefix("test:"), WithTTLJitter(0))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

type cachedReport struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	want := cachedReport{Status: "warning", Score: 0.8}
	raw, _ := json.Marshal(want)
	s.mock.ExpectGet("test:k1").SetVal(string(raw))

	var got cachedReport
	s.Require().NoError(s.cache.Get(context.Background(), "k1", &got))
	s.Equal(want, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var got cachedReport
	err := s.cache.Get(context.Background(), "k1", &got)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_NullMarkerIsMiss() {
	s.mock.ExpectGet("test:k1").SetVal(nullMarker)

	var got cachedReport
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "k1", &got))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k1").SetErr(errors.New("connection reset"))

	var got cachedReport
	err := s.cache.Get(context.Background(), "k1", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_UsesDefaultTTL() {
	raw, _ := json.Marshal(cachedReport{Status: "no_precedent"})
	s.mock.ExpectSet("test:k1", raw, 24*time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k1", cachedReport{Status: "no_precedent"}, 0))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:a").SetVal(1)
	ok, err := s.cache.Exists(context.Background(), "a")
	s.NoError(err)
	s.True(ok)
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	raw, _ := json.Marshal(cachedReport{Status: "warning"})
	s.mock.ExpectGet("test:k1").SetVal(string(raw))

	var got cachedReport
	err := s.cache.GetOrSet(context.Background(), "k1", &got, time.Minute, func(context.Context) (interface{}, error) {
		s.Fail("loader must not run on a hit")
		return nil, nil
	})
	s.NoError(err)
	s.Equal("warning", got.Status)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoadsAndStores() {
	val := cachedReport{Status: "conviction_found", Score: 0.9}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").RedisNil()
	s.mock.ExpectSet("test:k1", raw, time.Minute).SetVal("OK")

	var got cachedReport
	err := s.cache.GetOrSet(context.Background(), "k1", &got, time.Minute, func(context.Context) (interface{}, error) {
		return val, nil
	})
	s.NoError(err)
	s.Equal(val, got)
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:diag:*", 100).SetVal([]string{"test:diag:1", "test:diag:2"}, 0)
	s.mock.ExpectDel("test:diag:1", "test:diag:2").SetVal(2)

	n, err := s.cache.DeleteByPrefix(context.Background(), "diag:")
	s.NoError(err)
	s.Equal(int64(2), n)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestGetOrSet_SingleflightWithMiniredis(t *testing.T) {
	client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return cachedReport{Status: "warning"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got cachedReport
			assert.NoError(t, cache.GetOrSet(context.Background(), "shared", &got, time.Minute, loader))
			assert.Equal(t, "warning", got.Status)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2))

	ttl, err := client.TTL(context.Background(), "lawlens:shared").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 7)
}

func TestGetOrSet_NilResultCachesNullMarker(t *testing.T) {
	client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)

	var got cachedReport
	err := cache.GetOrSet(context.Background(), "empty", &got, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(t, ErrCacheMiss, err)

	raw, err := client.Get(context.Background(), "lawlens:empty").Result()
	require.NoError(t, err)
	assert.Equal(t, nullMarker, raw)
}
