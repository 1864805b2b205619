package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/sirupsen/logrus"
)

const HTTPName = "http"

// httpBackend delegates to another dns-converge api-server, which holds the
// provider credentials for the named profile.
type httpBackend struct {
	log     *logrus.Entry
	api     *restClient
	profile string
}

// NewHTTP builds the generic HTTP adapter. Required settings: host, profile, token.
func NewHTTP(log *logrus.Entry, settings map[string]string) (Backend, error) {
	if err := requireSettings(HTTPName, settings, "host", "profile", "token"); err != nil {
		return nil, err
	}
	return newHTTPBackend(log, settings["host"], settings["profile"], settings["token"]), nil
}

func newHTTPBackend(log *logrus.Entry, host, profile, token string) *httpBackend {
	baseURL := host
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &httpBackend{
		log:     log,
		profile: profile,
		api: &restClient{
			name:    HTTPName,
			baseURL: strings.TrimRight(baseURL, "/"),
			client:  &http.Client{},
			authorize: func(_ context.Context, req *http.Request) error {
				req.Header.Set("token", token)
				return nil
			},
			// Only a 200 counts as success.
			checkBody: func(status int, _ []byte) error {
				if status != http.StatusOK && status >= 200 && status <= 299 {
					return fmt.Errorf("%w: ensure returned status %d", model.ErrProviderAPI, status)
				}
				return nil
			},
		},
	}
}

func (b *httpBackend) Name() string {
	return HTTPName
}

func (b *httpBackend) Ensure(ctx context.Context, records []model.Record) error {
	b.log.WithField("profile", b.profile).Infof("ensuring %d DNS records remotely", len(records))
	err := b.api.do(ctx, http.MethodPost, "/ensure", model.EnsureRequest{
		Profile: b.profile,
		Records: records,
	}, nil)
	if err != nil {
		return fmt.Errorf("%s: ensuring %d records with profile %q: %w", HTTPName, len(records), b.profile, err)
	}
	return nil
}
