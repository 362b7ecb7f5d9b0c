package dst

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/awfufu/go-dstbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serverFor(t *testing.T, ts *httptest.Server) Server {
	t.Helper()
	host, port, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Server{Name: "myserver", IP: host, Port: p}
}

func TestControlSendsRequest(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"ret":0,"player_list":["Alice","Bob"]}`))
	}))
	defer ts.Close()

	c := NewClient(time.Second, zap.NewNop())
	resp := c.Control(context.Background(), serverFor(t, ts), Request{Method: "player_list"})

	assert.Equal(t, map[string]any{"method": "player_list", "kwargs": map[string]any{}}, got)
	assert.True(t, resp.OK())
	require.NotNil(t, resp.PlayerList)
	assert.Equal(t, []string{"Alice", "Bob"}, *resp.PlayerList)
	assert.Nil(t, resp.ModList)
	assert.Nil(t, resp.Info)
}

func TestControlEmptyListIsPresent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ret":0,"mod_list":[]}`))
	}))
	defer ts.Close()

	resp := NewClient(time.Second, zap.NewNop()).Control(context.Background(), serverFor(t, ts), Request{Method: "mod_list"})
	require.NotNil(t, resp.ModList)
	assert.Empty(t, *resp.ModList)
}

func TestControlConnectRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	srv := serverFor(t, ts)
	ts.Close()

	resp := NewClient(time.Second, zap.NewNop()).Control(context.Background(), srv, Request{Method: "start"})
	assert.Equal(t, 1, resp.Ret)
	require.NotNil(t, resp.Info)
	assert.Equal(t, InfoConnectRefused, *resp.Info)
}

func TestControlTimeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)

	start := time.Now()
	resp := NewClient(50*time.Millisecond, zap.NewNop()).Control(context.Background(), serverFor(t, ts), Request{Method: "update"})
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, resp.Ret)
	assert.Equal(t, InfoConnectRefused, *resp.Info)
}

func TestControlBadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("internal error"))
	}))
	defer ts.Close()

	resp := NewClient(time.Second, zap.NewNop()).Control(context.Background(), serverFor(t, ts), Request{Method: "stop"})
	assert.Equal(t, 1, resp.Ret)
	require.NotNil(t, resp.Info)
	assert.Equal(t, "internal error", *resp.Info)
}

func TestRequestMarshalsModList(t *testing.T) {
	data, err := json.Marshal(Request{Method: "mod_del", Kwargs: map[string]any{"mod_lst": []string{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"mod_del","kwargs":{"mod_lst":[]}}`, string(data))
}

func TestMethodName(t *testing.T) {
	assert.Equal(t, "player_list", MethodName("player-list"))
	assert.Equal(t, "create_cluster", MethodName("create-cluster"))
	assert.Equal(t, "start", MethodName("start"))
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry([]config.ServerConfig{
		{Name: "beta", IP: "10.0.0.2"},
		{Name: "alpha", IP: "10.0.0.1", Port: 6000},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	servers := r.Servers()
	assert.Equal(t, "beta", servers[0].Name)
	assert.Equal(t, "alpha", servers[1].Name)
	assert.Equal(t, "http://10.0.0.2:5800", servers[0].URL())

	s, ok := r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "http://10.0.0.1:6000", s.URL())

	_, ok = r.Lookup("gamma")
	assert.False(t, ok)

	_, err = NewRegistry([]config.ServerConfig{{Name: "a", IP: "x"}, {Name: "a", IP: "y"}})
	require.Error(t, err)
}
