package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doDomains(names ...string) map[string]interface{} {
	var domains []map[string]interface{}
	for _, n := range names {
		domains = append(domains, map[string]interface{}{"name": n})
	}
	return map[string]interface{}{"domains": domains, "links": map[string]interface{}{}}
}

func TestDigitalOceanEnsure(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": respondJSON(http.StatusOK, doDomains("example.com")),
		"GET /domains/example.com/records": respondJSON(http.StatusOK, map[string]interface{}{
			"domain_records": []map[string]interface{}{
				{"id": 11, "type": "A", "name": "@", "data": "198.51.100.9"},
				{"id": 12, "type": "CNAME", "name": "www", "data": "example.com."},
			},
			"links": map[string]interface{}{},
		}),
		"PUT /domains/example.com/records/11": respondJSON(http.StatusOK, nil),
		"POST /domains/example.com/records":   respondJSON(http.StatusCreated, nil),
	})
	log, hook := newTestLogger()
	b := newDigitalOceanBackend(log, api.URL, "", "secret")

	err := b.Ensure(context.Background(), []model.Record{
		{Domain: "example.com", Name: "example.com", Type: model.RecordTypeA, Data: "203.0.113.5"},
		{Domain: "example.com", Name: "www.example.com", Type: model.RecordTypeCname, Data: "example.com"},
		{Domain: "example.com", Name: "api.example.com", Type: model.RecordTypeCname, Data: "example.com"},
	})
	require.NoError(t, err)

	writes := api.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "PUT", writes[0].Method)
	assert.JSONEq(t, `{"type":"A","name":"@","data":"203.0.113.5"}`, writes[0].Body)
	assert.Equal(t, "POST", writes[1].Method)
	assert.JSONEq(t, `{"type":"CNAME","name":"api","data":"example.com."}`, writes[1].Body)
	assert.Equal(t, "Bearer secret", writes[0].Header.Get("Authorization"))
	assert.Equal(t, []string{"updating DNS record", "creating DNS record"}, messages(hook, logrus.InfoLevel))
}

func TestDigitalOceanFollowsPages(t *testing.T) {
	page := 0
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": func(w http.ResponseWriter, r *http.Request) {
			page++
			if page == 1 {
				body := doDomains("example.org")
				body["links"] = map[string]interface{}{"pages": map[string]string{"next": "page=2"}}
				respondJSON(http.StatusOK, body)(w, r)
				return
			}
			respondJSON(http.StatusOK, doDomains("example.com"))(w, r)
		},
	})
	log, _ := newTestLogger()
	b := newDigitalOceanBackend(log, api.URL, "", "secret")

	zones, err := b.ListZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Zone{{ID: "example.org", Name: "example.org"}, {ID: "example.com", Name: "example.com"}}, zones)
}

func TestDigitalOceanLogsZoneErrors(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /domains": respondJSON(http.StatusOK, map[string]interface{}{
			"domains": []map[string]interface{}{{"name": "example.com", "zone_file_with_error": "bad SOA"}},
		}),
	})
	log, hook := newTestLogger()
	b := newDigitalOceanBackend(log, api.URL, "", "secret")

	_, err := b.ListZones(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages(hook, logrus.ErrorLevel), 1)
}

func TestDigitalOceanNames(t *testing.T) {
	b := &digitalOceanBackend{}
	z := model.Zone{ID: "example.com", Name: "example.com"}

	assert.Equal(t, "@", b.WireName(model.Record{Name: "example.com"}, z))
	assert.Equal(t, "a.b", b.WireName(model.Record{Name: "a.b.example.com"}, z))
	assert.Equal(t, "example.com", b.CanonicalName(reconcile.ProviderRecord{Name: "@"}, z))
	assert.Equal(t, "a.b.example.com", b.CanonicalName(reconcile.ProviderRecord{Name: "a.b"}, z))
}
