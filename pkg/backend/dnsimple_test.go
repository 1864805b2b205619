package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNSimpleEnsure(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": respondJSON(http.StatusOK, []map[string]interface{}{
			{"domain": map[string]interface{}{"id": 7, "name": "example.org"}},
			{"domain": map[string]interface{}{"id": 42, "name": "example.com"}},
		}),
		"GET /domains/42/records": respondJSON(http.StatusOK, []map[string]interface{}{
			{"record": map[string]interface{}{"id": 100, "name": "", "record_type": "A", "content": "203.0.113.5"}},
			{"record": map[string]interface{}{"id": 101, "name": "app", "record_type": "A", "content": "198.51.100.9"}},
		}),
		"PUT /domains/42/records/101": respondJSON(http.StatusOK, nil),
		"POST /domains/42/records":    respondJSON(http.StatusCreated, nil),
	})
	log, _ := newTestLogger()
	b := newDNSimpleBackend(log, api.URL, "ops@example.com", "tok")

	err := b.Ensure(context.Background(), []model.Record{
		{Domain: "example.com", Name: "example.com", Type: model.RecordTypeA, Data: "203.0.113.5"},
		appRecord,
		{Domain: "example.com", Name: "www.example.com", Type: model.RecordTypeCname, Data: "app.example.com"},
	})
	require.NoError(t, err)

	writes := api.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "/domains/42/records/101", writes[0].Path)
	assert.JSONEq(t, `{"record":{"name":"app","record_type":"A","content":"203.0.113.5"}}`, writes[0].Body)
	assert.Equal(t, "/domains/42/records", writes[1].Path)
	assert.JSONEq(t, `{"record":{"name":"www","record_type":"CNAME","content":"app.example.com"}}`, writes[1].Body)
	assert.Equal(t, "ops@example.com:tok", writes[0].Header.Get("X-DNSimple-Token"))
}

func TestDNSimpleIdempotent(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": respondJSON(http.StatusOK, []map[string]interface{}{
			{"domain": map[string]interface{}{"id": 42, "name": "example.com"}},
		}),
		"GET /domains/42/records": respondJSON(http.StatusOK, []map[string]interface{}{
			{"record": map[string]interface{}{"id": 101, "name": "app", "record_type": "A", "content": "203.0.113.5"}},
		}),
	})
	log, _ := newTestLogger()
	b := newDNSimpleBackend(log, api.URL, "ops@example.com", "tok")

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Ensure(context.Background(), []model.Record{appRecord}))
	}
	assert.Empty(t, api.writes())
}

func TestDNSimpleStopsZoneOnWriteFailure(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": respondJSON(http.StatusOK, []map[string]interface{}{
			{"domain": map[string]interface{}{"id": 42, "name": "example.com"}},
			{"domain": map[string]interface{}{"id": 43, "name": "example.net"}},
		}),
		"GET /domains/42/records":  respondJSON(http.StatusOK, []interface{}{}),
		"GET /domains/43/records":  respondJSON(http.StatusOK, []interface{}{}),
		"POST /domains/42/records": respondJSON(http.StatusUnprocessableEntity, map[string]string{"message": "invalid"}),
		"POST /domains/43/records": respondJSON(http.StatusCreated, nil),
	})
	log, _ := newTestLogger()
	b := newDNSimpleBackend(log, api.URL, "ops@example.com", "tok")

	err := b.Ensure(context.Background(), []model.Record{
		appRecord,
		{Domain: "example.com", Name: "www.example.com", Type: model.RecordTypeA, Data: "203.0.113.5"},
		{Domain: "example.net", Name: "app.example.net", Type: model.RecordTypeA, Data: "203.0.113.5"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProviderAPI)

	// The failed zone stops after its first write, the other zone still runs.
	var paths []string
	for _, w := range api.writes() {
		paths = append(paths, w.Path)
	}
	assert.Equal(t, []string{"/domains/42/records", "/domains/43/records"}, paths)
}
