package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/sirupsen/logrus"
)

const (
	DigitalOceanName = "digitalocean"

	digitalOceanBaseURL = "https://api.digitalocean.com/v2"
	digitalOceanPerPage = 200
	digitalOceanApex    = "@"
)

// digitalOceanBackend talks to the DigitalOcean v2 domains API. Domains have no
// separate id there, so the zone id is the domain name.
type digitalOceanBackend struct {
	log *logrus.Entry
	api *restClient
}

// NewDigitalOcean builds the DigitalOcean adapter. Required settings: apiKey.
// clientId is accepted for older configurations and sent as the user agent.
func NewDigitalOcean(log *logrus.Entry, settings map[string]string) (Backend, error) {
	if err := requireSettings(DigitalOceanName, settings, "apiKey"); err != nil {
		return nil, err
	}
	return newDigitalOceanBackend(log, digitalOceanBaseURL, settings["clientId"], settings["apiKey"]), nil
}

func newDigitalOceanBackend(log *logrus.Entry, baseURL, clientID, apiKey string) *digitalOceanBackend {
	return &digitalOceanBackend{
		log: log,
		api: &restClient{
			name:    DigitalOceanName,
			baseURL: strings.TrimRight(baseURL, "/"),
			client:  &http.Client{},
			authorize: func(_ context.Context, req *http.Request) error {
				req.Header.Set("Authorization", "Bearer "+apiKey)
				if clientID != "" {
					req.Header.Set("User-Agent", "dns-converge/"+clientID)
				}
				return nil
			},
		},
	}
}

type doLinks struct {
	Pages struct {
		Next string `json:"next"`
	} `json:"pages"`
}

type doDomain struct {
	Name              string `json:"name"`
	Error             string `json:"error,omitempty"`
	ZoneFileWithError string `json:"zone_file_with_error,omitempty"`
}

type doDomainsPage struct {
	Domains []doDomain `json:"domains"`
	Links   doLinks    `json:"links"`
}

type doRecord struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

type doRecordsPage struct {
	DomainRecords []doRecord `json:"domain_records"`
	Links         doLinks    `json:"links"`
}

func (b *digitalOceanBackend) Name() string {
	return DigitalOceanName
}

func (b *digitalOceanBackend) Ensure(ctx context.Context, records []model.Record) error {
	return ensureZones(ctx, DigitalOceanName, b.log, b, records)
}

func (b *digitalOceanBackend) ListZones(ctx context.Context) ([]model.Zone, error) {
	var zones []model.Zone
	for page := 1; ; page++ {
		var out doDomainsPage
		path := fmt.Sprintf("/domains?page=%d&per_page=%d", page, digitalOceanPerPage)
		if err := b.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		for _, d := range out.Domains {
			if d.Error != "" {
				b.log.Errorf("DNS error for %q: %s", d.Name, d.Error)
			}
			if d.ZoneFileWithError != "" {
				b.log.Errorf("DNS zone file error for %q: %s", d.Name, d.ZoneFileWithError)
			}
			zones = append(zones, model.Zone{ID: d.Name, Name: d.Name})
		}
		if out.Links.Pages.Next == "" {
			return zones, nil
		}
	}
}

func (b *digitalOceanBackend) ListRecords(ctx context.Context, z model.Zone) ([]reconcile.ProviderRecord, error) {
	var records []reconcile.ProviderRecord
	for page := 1; ; page++ {
		var out doRecordsPage
		path := fmt.Sprintf("/domains/%s/records?page=%d&per_page=%d", url.PathEscape(z.ID), page, digitalOceanPerPage)
		if err := b.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		for _, r := range out.DomainRecords {
			records = append(records, reconcile.ProviderRecord{
				ID:   strconv.FormatInt(r.ID, 10),
				Name: r.Name,
				Type: model.RecordType(r.Type),
				Data: r.Data,
			})
		}
		if out.Links.Pages.Next == "" {
			return records, nil
		}
	}
}

func (b *digitalOceanBackend) CreateRecord(ctx context.Context, z model.Zone, r model.Record) error {
	body := doRecord{
		Type: string(r.Type),
		Name: b.WireName(r, z),
		Data: b.WireData(r, z),
	}
	return b.api.do(ctx, http.MethodPost, fmt.Sprintf("/domains/%s/records", url.PathEscape(z.ID)), body, nil)
}

func (b *digitalOceanBackend) UpdateRecord(ctx context.Context, z model.Zone, existingID string, r model.Record) error {
	body := doRecord{
		Type: string(r.Type),
		Name: b.WireName(r, z),
		Data: b.WireData(r, z),
	}
	path := fmt.Sprintf("/domains/%s/records/%s", url.PathEscape(z.ID), url.PathEscape(existingID))
	return b.api.do(ctx, http.MethodPut, path, body, nil)
}

// WireName is relative to the zone, "@" for the apex.
func (b *digitalOceanBackend) WireName(r model.Record, z model.Zone) string {
	return relativeName(r.Name, z, digitalOceanApex)
}

// WireData makes CNAME targets absolute.
func (b *digitalOceanBackend) WireData(r model.Record, _ model.Zone) string {
	if r.Type == model.RecordTypeCname && !strings.HasSuffix(r.Data, ".") {
		return r.Data + "."
	}
	return r.Data
}

func (b *digitalOceanBackend) CanonicalName(e reconcile.ProviderRecord, z model.Zone) string {
	return absoluteName(e.Name, z, digitalOceanApex)
}

func (b *digitalOceanBackend) Equal(r model.Record, z model.Zone, e reconcile.ProviderRecord) bool {
	if r.Type == model.RecordTypeCname {
		return model.TrimDot(b.WireData(r, z)) == model.TrimDot(e.Data)
	}
	return r.Data == e.Data
}

// relativeName strips the zone suffix from name; the zone apex becomes apex.
func relativeName(name string, z model.Zone, apex string) string {
	zone := model.TrimDot(z.Name)
	if name == zone {
		return apex
	}
	return strings.TrimSuffix(name, "."+zone)
}

// absoluteName is the inverse of relativeName.
func absoluteName(name string, z model.Zone, apex string) string {
	zone := model.TrimDot(z.Name)
	if name == apex {
		return zone
	}
	return name + "." + zone
}
