package testserver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	srv *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.srv = New(nil, WithAddress("127.0.0.1:0"))
	s.Require().NoError(s.srv.Start())
}

func (s *ServerTestSuite) TearDownTest() {
	s.Require().NoError(s.srv.Close())
}

func (s *ServerTestSuite) get(key string) (int, string) {
	resp, err := http.Get(s.srv.URL() + "/" + key)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(body)
}

func (s *ServerTestSuite) TestSettingTheDataAfterwards() {
	s.srv.SetData(map[string]string{"key": "value"})

	status, body := s.get("key")

	s.Equal(http.StatusOK, status)
	s.Equal("value", body)
}

func (s *ServerTestSuite) TestChangingTheDataWhileRunning() {
	s.srv.SetData(map[string]string{"key": "value"})
	_, body := s.get("key")
	s.Equal("value", body)

	s.srv.SetData(map[string]string{"key": "new value"})
	_, body = s.get("key")
	s.Equal("new value", body)

	s.srv.Set("key", "newer value")
	_, body = s.get("key")
	s.Equal("newer value", body)
	s.Equal(map[string]string{"key": "newer value"}, s.srv.Data())
}

func (s *ServerTestSuite) TestMissingKey() {
	status, body := s.get("key")

	s.Equal(http.StatusNotFound, status)
	s.Empty(body)
}

func (s *ServerTestSuite) TestEmptyValueIsMissing() {
	s.srv.SetData(map[string]string{"key": ""})

	status, _ := s.get("key")

	s.Equal(http.StatusNotFound, status)
}

func (s *ServerTestSuite) TestMultipleKeys() {
	s.srv.SetData(map[string]string{"lorem": "ipsum", "dolor/sit": "amet", "consectetur/adipiscing": "elit"})

	testCases := []struct {
		key      string
		expected string
	}{
		{key: "lorem", expected: "ipsum"},
		{key: "dolor/sit", expected: "amet"},
		{key: "consectetur/adipiscing", expected: "elit"},
	}

	for _, tc := range testCases {
		s.Run(tc.key, func() {
			status, body := s.get(tc.key)
			s.Equal(http.StatusOK, status)
			s.Equal(tc.expected, body)
		})
	}
}

func (s *ServerTestSuite) TestValueKeptVerbatim() {
	s.srv.SetData(map[string]string{"knock-knock": "\nwho's there?\n"})

	_, body := s.get("knock-knock")

	s.Equal("\nwho's there?\n", body)
}

func (s *ServerTestSuite) TestAccessLogs() {
	s.get("lorem")
	s.get("lorem")
	s.get("dolor/sit")

	s.Equal([]string{"/lorem", "/lorem", "/dolor/sit"}, s.srv.AccessLogs())

	s.srv.ResetAccessLogs()
	s.Empty(s.srv.AccessLogs())
}

func (s *ServerTestSuite) TestMethodNotAllowed() {
	s.srv.SetData(map[string]string{"key": "value"})

	resp, err := http.Post(s.srv.URL()+"/key", "text/plain", strings.NewReader("other"))
	s.Require().NoError(err)
	resp.Body.Close()

	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
	s.Equal(http.MethodGet, resp.Header.Get("Allow"))
	_, body := s.get("key")
	s.Equal("value", body)
}

func (s *ServerTestSuite) TestStartTwice() {
	s.Error(s.srv.Start())
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestConstructorData(t *testing.T) {
	srv := New(map[string]string{"key": "value"}, WithAddress("127.0.0.1:0"))
	require.NoError(t, srv.Start())
	defer srv.Close()

	resp, err := http.Get(srv.URL() + "/key")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "value", string(body))
}

func TestDefaultAddress(t *testing.T) {
	srv := New(nil)

	require.Equal(t, "http://127.0.0.1:8000", srv.URL())
}

func TestShutdown(t *testing.T) {
	srv := New(nil, WithAddress("127.0.0.1:0"))
	require.ErrorIs(t, srv.Shutdown(context.Background()), ErrNotStarted)
	require.ErrorIs(t, srv.Wait(), ErrNotStarted)
	require.NoError(t, srv.Close())

	require.NoError(t, srv.Start())
	url := srv.URL()
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Wait())

	_, err := http.Get(url + "/key")
	require.Error(t, err)
}

func TestListenError(t *testing.T) {
	first := New(nil, WithAddress("127.0.0.1:0"))
	require.NoError(t, first.Start())
	defer first.Close()

	second := New(nil, WithAddress(strings.TrimPrefix(first.URL(), "http://")))
	require.Error(t, second.Start())
}
