package datasource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"name":"Ada","isAdmin":true,"roles":["admin"]}`))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":42}`))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := newServer(t)
	f := NewHTTPFetcher(5 * time.Second)
	ctx := context.Background()

	v, err := f.Fetch(ctx, Definition{Name: "user", URL: srv.URL + "/user", Headers: map[string]string{"Authorization": "Bearer t"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", v.(map[string]any)["name"])

	v, err = f.Fetch(ctx, Definition{Name: "echo", URL: srv.URL + "/echo", Method: "post", Body: `{"ok":true}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, v)

	_, err = f.Fetch(ctx, Definition{Name: "user", URL: srv.URL + "/user"})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	assert.Equal(t, "user", fe.Source)

	_, err = f.Fetch(ctx, Definition{Name: "garbage", URL: srv.URL + "/garbage"})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "parse json")
}

func TestRegistry_RunAllIsolatesFailures(t *testing.T) {
	srv := newServer(t)
	r := NewRegistry(NewHTTPFetcher(5*time.Second), WithConcurrency(2))
	off := false
	for _, d := range []Definition{
		{Name: "user", URL: srv.URL + "/user", Headers: map[string]string{"Authorization": "Bearer t"}},
		{Name: "stats", URL: srv.URL + "/stats"},
		{Name: "broken", URL: srv.URL + "/broken"},
		{Name: "skipped", URL: srv.URL + "/stats", Active: &off},
	} {
		require.NoError(t, r.Register(d))
	}

	err := r.RunAll(context.Background())
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "broken", fe.Source)

	st, _ := r.State("user")
	assert.Equal(t, StatusOK, st.Status)
	st, _ = r.State("broken")
	assert.Equal(t, StatusError, st.Status)
	st, _ = r.State("skipped")
	assert.Equal(t, StatusIdle, st.Status)

	_, ok := r.Value("broken")
	assert.False(t, ok)
	_, ok = r.Value("skipped")
	assert.False(t, ok)

	in := binding.New(r)
	assert.Equal(t, "Hello Ada", in.ResolveString("Hello {{user.name}}", api.PropString))
	assert.Equal(t, int64(42), in.ResolveString("{{stats.count}}", api.PropNumber))
	assert.Equal(t, false, in.ResolveString("{{broken.flag}}", api.PropBoolean))
}

type stubFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(def Definition) (any, error)
}

func (s *stubFetcher) Fetch(_ context.Context, def Definition) (any, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[def.Name]++
	s.mu.Unlock()
	return s.fn(def)
}

func TestRegistry_FailureDropsCachedValue(t *testing.T) {
	fail := false
	f := &stubFetcher{fn: func(def Definition) (any, error) {
		if fail {
			return nil, &FetchError{Source: def.Name, Err: errors.New("down")}
		}
		return map[string]any{"v": int64(1)}, nil
	}}
	r := NewRegistry(f)
	require.NoError(t, r.Register(Definition{Name: "a", URL: "http://unused"}))

	require.NoError(t, r.Run(context.Background(), "a"))
	_, ok := r.Value("a")
	require.True(t, ok)

	fail = true
	assert.Error(t, r.Run(context.Background(), "a"))
	_, ok = r.Value("a")
	assert.False(t, ok)
	st, _ := r.State("a")
	assert.EqualError(t, st.Err, "source a: down")
}

func TestRegistry_UnknownSource(t *testing.T) {
	r := NewRegistry(&stubFetcher{})
	assert.ErrorIs(t, r.Run(context.Background(), "ghost"), ErrUnknownSource)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(&stubFetcher{})
	assert.Error(t, r.Register(Definition{URL: "http://x"}))
	assert.Error(t, r.Register(Definition{Name: "x"}))

	require.NoError(t, r.Register(Definition{Name: "b", URL: "http://b"}))
	require.NoError(t, r.Register(Definition{Name: "a", URL: "http://a"}))
	require.NoError(t, r.Register(Definition{Name: "b", URL: "http://b2"}))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "http://b2", defs[0].URL)
}

func TestRegistry_SetAndSubscribe(t *testing.T) {
	r := NewRegistry(&stubFetcher{fn: func(Definition) (any, error) { return "fresh", nil }})
	var mu sync.Mutex
	var seen []Status
	r.Subscribe(func(name string, st State) {
		mu.Lock()
		seen = append(seen, st.Status)
		mu.Unlock()
	})

	r.Set("manual", map[string]any{"x": int64(1)})
	v, ok := r.Value("manual")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"x": int64(1)}, v)

	require.NoError(t, r.Register(Definition{Name: "live", URL: "http://live"}))
	require.NoError(t, r.Run(context.Background(), "live"))
	assert.Equal(t, []Status{StatusOK, StatusLoading, StatusOK}, seen)
}

func TestRegistry_RunAllRespectsLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	f := &stubFetcher{fn: func(Definition) (any, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inflight.Add(-1)
		return true, nil
	}}
	r := NewRegistry(f, WithConcurrency(2))
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, r.Register(Definition{Name: name, URL: "http://" + name}))
	}
	require.NoError(t, r.RunAll(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, f.calls, 5)
}

func TestParseConfig(t *testing.T) {
	src := []byte(`
source "userApi" {
  url     = "https://example.com/me"
  headers = { Authorization = "Bearer t" }
}

source "stats" {
  url    = "https://example.com/stats"
  method = "POST"
  body   = "{}"
  active = false
}
`)
	defs, err := ParseConfig("sources.hcl", src)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "userApi", defs[0].Name)
	assert.Equal(t, "Bearer t", defs[0].Headers["Authorization"])
	assert.True(t, defs[0].IsActive())

	assert.Equal(t, "POST", defs[1].Method)
	assert.False(t, defs[1].IsActive())

	_, err = ParseConfig("dup.hcl", []byte("source \"a\" {\n url = \"x\"\n}\nsource \"a\" {\n url = \"y\"\n}\n"))
	assert.ErrorContains(t, err, "defined twice")

	_, err = ParseConfig("bad.hcl", []byte(`source "a" {}`))
	assert.Error(t, err)
}
