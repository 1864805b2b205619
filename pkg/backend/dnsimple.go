package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/sirupsen/logrus"
)

const (
	DNSimpleName = "dnsimple"

	dnsimpleBaseURL = "https://api.dnsimple.com/v1"
)

type dnsimpleBackend struct {
	log *logrus.Entry
	api *restClient
}

// NewDNSimple builds the DNSimple adapter. Required settings: email, token.
func NewDNSimple(log *logrus.Entry, settings map[string]string) (Backend, error) {
	if err := requireSettings(DNSimpleName, settings, "email", "token"); err != nil {
		return nil, err
	}
	return newDNSimpleBackend(log, dnsimpleBaseURL, settings["email"], settings["token"]), nil
}

func newDNSimpleBackend(log *logrus.Entry, baseURL, email, token string) *dnsimpleBackend {
	return &dnsimpleBackend{
		log: log,
		api: &restClient{
			name:    DNSimpleName,
			baseURL: strings.TrimRight(baseURL, "/"),
			client:  &http.Client{},
			authorize: func(_ context.Context, req *http.Request) error {
				req.Header.Set("X-DNSimple-Token", email+":"+token)
				return nil
			},
		},
	}
}

type dnsimpleDomain struct {
	Domain struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"domain"`
}

type dnsimpleRecordBody struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	RecordType string `json:"record_type"`
	Content    string `json:"content"`
}

type dnsimpleRecord struct {
	Record dnsimpleRecordBody `json:"record"`
}

func (b *dnsimpleBackend) Name() string {
	return DNSimpleName
}

func (b *dnsimpleBackend) Ensure(ctx context.Context, records []model.Record) error {
	return ensureZones(ctx, DNSimpleName, b.log, b, records)
}

func (b *dnsimpleBackend) ListZones(ctx context.Context) ([]model.Zone, error) {
	var domains []dnsimpleDomain
	if err := b.api.do(ctx, http.MethodGet, "/domains", nil, &domains); err != nil {
		return nil, err
	}
	zones := make([]model.Zone, 0, len(domains))
	for _, d := range domains {
		zones = append(zones, model.Zone{
			ID:   strconv.FormatInt(d.Domain.ID, 10),
			Name: d.Domain.Name,
		})
	}
	return zones, nil
}

func (b *dnsimpleBackend) ListRecords(ctx context.Context, z model.Zone) ([]reconcile.ProviderRecord, error) {
	var existing []dnsimpleRecord
	if err := b.api.do(ctx, http.MethodGet, fmt.Sprintf("/domains/%s/records", z.ID), nil, &existing); err != nil {
		return nil, err
	}
	records := make([]reconcile.ProviderRecord, 0, len(existing))
	for _, e := range existing {
		records = append(records, reconcile.ProviderRecord{
			ID:   strconv.FormatInt(e.Record.ID, 10),
			Name: e.Record.Name,
			Type: model.RecordType(e.Record.RecordType),
			Data: e.Record.Content,
		})
	}
	return records, nil
}

func (b *dnsimpleBackend) CreateRecord(ctx context.Context, z model.Zone, r model.Record) error {
	return b.api.do(ctx, http.MethodPost, fmt.Sprintf("/domains/%s/records", z.ID), b.payload(r, z), nil)
}

func (b *dnsimpleBackend) UpdateRecord(ctx context.Context, z model.Zone, existingID string, r model.Record) error {
	return b.api.do(ctx, http.MethodPut, fmt.Sprintf("/domains/%s/records/%s", z.ID, existingID), b.payload(r, z), nil)
}

func (b *dnsimpleBackend) payload(r model.Record, z model.Zone) dnsimpleRecord {
	return dnsimpleRecord{
		Record: dnsimpleRecordBody{
			Name:       b.WireName(r, z),
			RecordType: string(r.Type),
			Content:    b.WireData(r, z),
		},
	}
}

// WireName is relative to the zone, empty for the apex.
func (b *dnsimpleBackend) WireName(r model.Record, z model.Zone) string {
	return relativeName(r.Name, z, "")
}

func (b *dnsimpleBackend) WireData(r model.Record, _ model.Zone) string {
	return r.Data
}

func (b *dnsimpleBackend) CanonicalName(e reconcile.ProviderRecord, z model.Zone) string {
	return absoluteName(e.Name, z, "")
}

func (b *dnsimpleBackend) Equal(r model.Record, _ model.Zone, e reconcile.ProviderRecord) bool {
	return r.Data == e.Data
}
