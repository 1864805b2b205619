package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	UltraDNSName = "ultradns"

	ultraDNSBaseURL   = "https://restapi.ultradns.com/v1"
	ultraDNSTTL       = 900
	ultraDNSPageLimit = 100
)

// ultraDNSBackend is the only adapter with token based auth. The token is
// fetched with a password grant, refreshed when it expires and dropped when
// the API answers 401.
type ultraDNSBackend struct {
	log *logrus.Entry
	api *restClient

	oauth    *oauth2.Config
	username string
	password string

	lock  sync.Mutex
	token *oauth2.Token
}

// NewUltraDNS builds the UltraDNS adapter. Required settings: username, password.
func NewUltraDNS(log *logrus.Entry, settings map[string]string) (Backend, error) {
	if err := requireSettings(UltraDNSName, settings, "username", "password"); err != nil {
		return nil, err
	}
	return newUltraDNSBackend(log, ultraDNSBaseURL, settings["username"], settings["password"]), nil
}

func newUltraDNSBackend(log *logrus.Entry, baseURL, username, password string) *ultraDNSBackend {
	baseURL = strings.TrimRight(baseURL, "/")
	b := &ultraDNSBackend{
		log:      log,
		username: username,
		password: password,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + "/authorization/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	b.api = &restClient{
		name:      UltraDNSName,
		baseURL:   baseURL,
		client:    &http.Client{},
		authorize: b.authorize,
		checkBody: checkUltraDNSBody,
	}
	return b
}

type ultraDNSError struct {
	ErrorCode    interface{} `json:"errorCode"`
	ErrorMessage string      `json:"errorMessage"`
}

type ultraDNSResultInfo struct {
	TotalCount    int `json:"totalCount"`
	Offset        int `json:"offset"`
	ReturnedCount int `json:"returnedCount"`
}

type ultraDNSZones struct {
	Zones []struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"zones"`
	ResultInfo ultraDNSResultInfo `json:"resultInfo"`
}

type ultraDNSRRSet struct {
	OwnerName string   `json:"ownerName,omitempty"`
	RRType    string   `json:"rrtype,omitempty"`
	TTL       int      `json:"ttl,omitempty"`
	RData     []string `json:"rdata"`
}

type ultraDNSRRSets struct {
	RRSets     []ultraDNSRRSet    `json:"rrSets"`
	ResultInfo ultraDNSResultInfo `json:"resultInfo"`
}

func (b *ultraDNSBackend) authorize(ctx context.Context, req *http.Request) error {
	tok, err := b.currentToken(ctx)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}

func (b *ultraDNSBackend) currentToken(ctx context.Context) (*oauth2.Token, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.token.Valid() {
		return b.token, nil
	}

	var (
		tok *oauth2.Token
		err error
	)
	if b.token != nil && b.token.RefreshToken != "" {
		tok, err = b.oauth.TokenSource(ctx, b.token).Token()
		if err != nil {
			b.log.Warnf("refreshing token failed, requesting a new one: %v", err)
		}
	}
	if tok == nil {
		tok, err = b.oauth.PasswordCredentialsToken(ctx, b.username, b.password)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: authorizing: %v", model.ErrUnauthorized, UltraDNSName, err)
		}
	}
	b.token = tok
	return tok, nil
}

func (b *ultraDNSBackend) invalidateToken() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.token = nil
}

// call retries once with a fresh token when the API rejects the current one.
func (b *ultraDNSBackend) call(ctx context.Context, method, path string, body, out interface{}) error {
	err := b.api.do(ctx, method, path, body, out)
	if errors.Is(err, model.ErrUnauthorized) {
		b.log.Debug("token rejected, re-authorizing")
		b.invalidateToken()
		err = b.api.do(ctx, method, path, body, out)
	}
	return err
}

// checkUltraDNSBody turns errorCode bodies into errors. 401 is left to the
// status check so that the token gets refreshed.
func checkUltraDNSBody(status int, body []byte) error {
	if status == http.StatusUnauthorized || len(body) == 0 {
		return nil
	}

	var single ultraDNSError
	if err := json.Unmarshal(body, &single); err == nil && single.ErrorCode != nil {
		return fmt.Errorf("%w: got error %q (%v)", model.ErrProviderAPI, single.ErrorMessage, single.ErrorCode)
	}

	var list []ultraDNSError
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].ErrorCode != nil {
		return fmt.Errorf("%w: got error %q (%v)", model.ErrProviderAPI, list[0].ErrorMessage, list[0].ErrorCode)
	}
	return nil
}

func (b *ultraDNSBackend) Name() string {
	return UltraDNSName
}

func (b *ultraDNSBackend) Ensure(ctx context.Context, records []model.Record) error {
	return ensureZones(ctx, UltraDNSName, b.log, b, records)
}

func (b *ultraDNSBackend) ListZones(ctx context.Context) ([]model.Zone, error) {
	var zones []model.Zone
	for offset := 0; ; {
		var out ultraDNSZones
		if err := b.call(ctx, http.MethodGet, fmt.Sprintf("/zones?offset=%d&limit=%d", offset, ultraDNSPageLimit), nil, &out); err != nil {
			return nil, err
		}
		for _, z := range out.Zones {
			zones = append(zones, model.Zone{ID: z.Properties.Name, Name: z.Properties.Name})
		}
		offset += len(out.Zones)
		if len(out.Zones) == 0 || offset >= out.ResultInfo.TotalCount {
			return zones, nil
		}
	}
}

// ListRecords fetches a single page of record sets and refuses to continue
// when the zone holds more.
func (b *ultraDNSBackend) ListRecords(ctx context.Context, z model.Zone) ([]reconcile.ProviderRecord, error) {
	var out ultraDNSRRSets
	if err := b.call(ctx, http.MethodGet, fmt.Sprintf("/zones/%s/rrsets", url.PathEscape(z.ID)), nil, &out); err != nil {
		return nil, err
	}
	if out.ResultInfo.TotalCount > out.ResultInfo.ReturnedCount {
		return nil, fmt.Errorf("%w: zone %s has %d record sets, only %d returned",
			model.ErrUnsupportedPagination, z.Name, out.ResultInfo.TotalCount, out.ResultInfo.ReturnedCount)
	}

	records := make([]reconcile.ProviderRecord, 0, len(out.RRSets))
	for _, rrs := range out.RRSets {
		pr := reconcile.ProviderRecord{
			ID:   rrs.OwnerName,
			Name: rrs.OwnerName,
			Type: ultraDNSType(rrs.RRType),
		}
		if len(rrs.RData) > 0 {
			pr.Data = rrs.RData[0]
		}
		records = append(records, pr)
	}
	return records, nil
}

// ultraDNSType turns "A (1)" into "A".
func ultraDNSType(rrtype string) model.RecordType {
	if i := strings.Index(rrtype, " "); i >= 0 {
		rrtype = rrtype[:i]
	}
	return model.RecordType(rrtype)
}

func (b *ultraDNSBackend) CreateRecord(ctx context.Context, z model.Zone, r model.Record) error {
	path := fmt.Sprintf("/zones/%s/rrsets/%s/%s", url.PathEscape(z.ID), r.Type, url.PathEscape(b.WireName(r, z)))
	return b.call(ctx, http.MethodPost, path, ultraDNSRRSet{
		TTL:   ultraDNSTTL,
		RData: []string{b.WireData(r, z)},
	}, nil)
}

func (b *ultraDNSBackend) UpdateRecord(ctx context.Context, z model.Zone, existingID string, r model.Record) error {
	path := fmt.Sprintf("/zones/%s/rrsets/%s/%s", url.PathEscape(z.ID), r.Type, url.PathEscape(existingID))
	return b.call(ctx, http.MethodPatch, path, ultraDNSRRSet{
		RData: []string{b.WireData(r, z)},
	}, nil)
}

// WireName is the absolute owner name.
func (b *ultraDNSBackend) WireName(r model.Record, _ model.Zone) string {
	return r.Name + "."
}

// WireData relativizes CNAME targets inside the record's domain and makes
// all others absolute.
func (b *ultraDNSBackend) WireData(r model.Record, _ model.Zone) string {
	if r.Type != model.RecordTypeCname {
		return r.Data
	}
	suffix := "." + r.Domain
	if strings.HasSuffix(r.Data, suffix) {
		return strings.TrimSuffix(r.Data, suffix)
	}
	return r.Data + "."
}

func (b *ultraDNSBackend) CanonicalName(e reconcile.ProviderRecord, _ model.Zone) string {
	return model.TrimDot(e.Name)
}

// Equal accepts the absolute echo of a relative CNAME target.
func (b *ultraDNSBackend) Equal(r model.Record, z model.Zone, e reconcile.ProviderRecord) bool {
	data := b.WireData(r, z)
	if data == e.Data {
		return true
	}
	return r.Type == model.RecordTypeCname && data+"."+r.Domain+"." == e.Data
}
