package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *MemoryStore
}

func (s *StoreTestSuite) SetupTest() {
	s.store = NewStore(map[string]string{"lorem": "ipsum", "dolor/sit": "amet"})
}

func (s *StoreTestSuite) TestLookup() {
	testCases := []struct {
		name     string
		key      string
		expected string
		found    bool
	}{
		{name: "top level key", key: "lorem", expected: "ipsum", found: true},
		{name: "nested key", key: "dolor/sit", expected: "amet", found: true},
		{name: "leading slash", key: "/dolor/sit", expected: "amet", found: true},
		{name: "missing key", key: "consectetur", expected: "", found: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			v, ok := s.store.Lookup(tc.key)
			s.Equal(tc.expected, v)
			s.Equal(tc.found, ok)
		})
	}
}

func (s *StoreTestSuite) TestSeedIsCopied() {
	// Given
	seed := map[string]string{"key": "value"}
	st := NewStore(seed)

	// When
	seed["key"] = "changed"

	// Then
	v, _ := st.Lookup("key")
	s.Equal("value", v)
}

func (s *StoreTestSuite) TestNilSeed() {
	st := NewStore(nil)

	_, ok := st.Lookup("key")
	s.False(ok)

	st.Set("key", "value")
	v, ok := st.Lookup("key")
	s.True(ok)
	s.Equal("value", v)
}

func (s *StoreTestSuite) TestReplace() {
	s.store.Replace(map[string]string{"key": "new value"})

	_, ok := s.store.Lookup("lorem")
	s.False(ok)
	v, ok := s.store.Lookup("key")
	s.True(ok)
	s.Equal("new value", v)
}

func (s *StoreTestSuite) TestEmptyValueIsMissing() {
	s.store.Set("empty", "")
	_, ok := s.store.Lookup("empty")
	s.False(ok)

	s.store.Set("lorem", "")
	_, ok = s.store.Lookup("lorem")
	s.False(ok)
	s.NotContains(s.store.Snapshot(), "lorem")

	st := NewStore(map[string]string{"blank": ""})
	_, ok = st.Lookup("blank")
	s.False(ok)
}

func (s *StoreTestSuite) TestAccessLogs() {
	// Given
	s.store.Record("/lorem")
	s.store.Record("/lorem")
	s.store.Record("/dolor/sit")

	// Then
	logs := s.store.AccessLogs()
	s.Equal([]string{"/lorem", "/lorem", "/dolor/sit"}, logs)

	// a returned log is a copy
	logs[0] = "tampered"
	s.Equal("/lorem", s.store.AccessLogs()[0])

	// When
	s.store.ResetAccessLogs()

	// Then
	s.Empty(s.store.AccessLogs())
	s.Equal(int64(3), s.store.Requests())
}

func (s *StoreTestSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", i)
			s.store.Set(key, "value")
			s.store.Lookup(key)
			s.store.Record("/" + key)
		}(i)
	}
	wg.Wait()

	s.Len(s.store.AccessLogs(), 50)
	s.Len(s.store.Snapshot(), 52)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
