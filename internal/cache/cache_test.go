package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/zebr0/zebr0-go/internal/transport"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (transport.Response, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(transport.Response), args.Error(1)
}

type CacheTestSuite struct {
	suite.Suite
	fetcher *mockFetcher
	ctx     context.Context
}

func (s *CacheTestSuite) SetupTest() {
	s.fetcher = new(mockFetcher)
	s.ctx = context.Background()
}

func (s *CacheTestSuite) TestHitWithinWindow() {
	// Given a fetcher answering once
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "pong"}, nil).Once()
	c := New(s.fetcher, time.Minute)

	// When fetching twice
	first, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	second, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)

	// Then the transport is reached only once
	s.Equal("pong", first.Body)
	s.Equal(first, second)
	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 1)
	s.Equal(Stats{Hits: 1, Misses: 1, Entries: 1}, c.Stats())
}

func (s *CacheTestSuite) TestNotFoundIsCached() {
	s.fetcher.On("Fetch", mock.Anything, "http://x/missing").
		Return(transport.Response{Found: false}, nil).Once()
	c := New(s.fetcher, time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := c.Fetch(s.ctx, "http://x/missing")
		s.Require().NoError(err)
		s.False(resp.Found)
	}
	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 1)
}

func (s *CacheTestSuite) TestExpiryRefreshes() {
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "pong"}, nil).Once()
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "peng"}, nil).Once()
	c := New(s.fetcher, 200*time.Millisecond)

	resp, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	s.Equal("pong", resp.Body)

	time.Sleep(100 * time.Millisecond)
	resp, err = c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	s.Equal("pong", resp.Body)

	// the hit above must not have extended the entry
	time.Sleep(150 * time.Millisecond)
	resp, err = c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	s.Equal("peng", resp.Body)

	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 2)
}

func (s *CacheTestSuite) TestZeroDisablesCaching() {
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "pong"}, nil)
	c := New(s.fetcher, 0)

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(s.ctx, "http://x/ping")
		s.Require().NoError(err)
	}
	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 3)
	s.Zero(c.Stats().Entries)
}

func (s *CacheTestSuite) TestTransportErrorsAreNotCached() {
	failure := errors.New("connection refused")
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{}, failure).Once()
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "pong"}, nil).Once()
	c := New(s.fetcher, time.Minute)

	_, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().ErrorIs(err, failure)

	resp, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	s.Equal("pong", resp.Body)
}

func (s *CacheTestSuite) TestPurge() {
	s.fetcher.On("Fetch", mock.Anything, "http://x/ping").
		Return(transport.Response{Found: true, Body: "pong"}, nil)
	c := New(s.fetcher, time.Minute)

	_, err := c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)
	c.Purge()
	s.Zero(c.Stats().Entries)
	_, err = c.Fetch(s.ctx, "http://x/ping")
	s.Require().NoError(err)

	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 2)
}

func (s *CacheTestSuite) TestConcurrentMissesShareOneRequest() {
	release := make(chan struct{})
	s.fetcher.On("Fetch", mock.Anything, "http://x/slow").
		WaitUntil(time.After(100*time.Millisecond)).
		Return(transport.Response{Found: true, Body: "value"}, nil).Once()
	c := New(s.fetcher, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			resp, err := c.Fetch(s.ctx, "http://x/slow")
			s.NoError(err)
			s.Equal("value", resp.Body)
		}()
	}
	close(release)
	wg.Wait()

	s.fetcher.AssertNumberOfCalls(s.T(), "Fetch", 1)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
