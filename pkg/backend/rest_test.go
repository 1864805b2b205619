package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one request seen by a fake provider API.
type call struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// fakeAPI routes "METHOD /path" keys (query ignored) and records every call.
type fakeAPI struct {
	*httptest.Server

	lock  sync.Mutex
	calls []call
}

func newFakeAPI(t *testing.T, handlers map[string]http.HandlerFunc) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.lock.Lock()
		f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: string(body)})
		f.lock.Unlock()

		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// writes returns the non-GET calls.
func (f *fakeAPI) writes() []call {
	f.lock.Lock()
	defer f.lock.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func TestFakeAPIHandlerSeesBody(t *testing.T) {
	var seen string
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /token": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			seen = r.PostForm.Get("grant_type")
			w.WriteHeader(http.StatusNoContent)
		},
	})

	resp, err := api.Client().PostForm(api.URL+"/token", url.Values{"grant_type": {"password"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "password", seen)
	require.Len(t, api.writes(), 1)
	assert.Equal(t, "grant_type=password", api.writes()[0].Body)
}

func respondJSON(status int, v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestRestClientStatusMapping(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /ok":        respondJSON(http.StatusOK, map[string]string{"hello": "world"}),
		"GET /forbidden": respondJSON(http.StatusForbidden, nil),
		"GET /broken":    respondJSON(http.StatusInternalServerError, map[string]string{"message": "boom"}),
	})
	c := &restClient{name: "test", baseURL: api.URL, client: api.Client()}

	var out map[string]string
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/ok", nil, &out))
	assert.Equal(t, "world", out["hello"])

	err := c.do(context.Background(), http.MethodGet, "/forbidden", nil, nil)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	err = c.do(context.Background(), http.MethodGet, "/broken", nil, nil)
	assert.ErrorIs(t, err, model.ErrProviderAPI)
	assert.ErrorContains(t, err, "boom")
}

func TestRestClientSendsJSONBody(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /things": respondJSON(http.StatusCreated, nil),
	})
	c := &restClient{name: "test", baseURL: api.URL, client: api.Client()}

	require.NoError(t, c.do(context.Background(), http.MethodPost, "/things", map[string]int{"n": 1}, nil))
	require.Len(t, api.writes(), 1)
	assert.JSONEq(t, `{"n":1}`, api.writes()[0].Body)
	assert.Equal(t, "application/json", api.writes()[0].Header.Get("Content-Type"))
}
