package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acorn-io/dns-converge/pkg/config"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type ContextKey string

const (
	ensureRequestKey ContextKey = "ensureRequest"
	profileKey       ContextKey = "profile"
)

const maxEnsureBody = 1 << 20

// tokenAuthMiddleware decodes the ensure request and checks the token header
// against the bcrypt hash of the profile the request names.
func tokenAuthMiddleware(profiles map[string]config.Profile) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logrus.Debugf("request URL path: %s", r.URL.Path)

			var input model.EnsureRequest
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnsureBody)).Decode(&input); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if input.Profile == "" {
				writeError(w, http.StatusForbidden, errors.New("must specify profile"))
				return
			}

			profile, ok := profiles[input.Profile]
			if !ok || profile.TokenHash == "" {
				writeError(w, http.StatusForbidden, errors.New("forbidden to use"))
				return
			}

			token := r.Header.Get("token")
			if err := bcrypt.CompareHashAndPassword([]byte(profile.TokenHash), []byte(token)); err != nil {
				writeError(w, http.StatusForbidden, errors.New("forbidden to use"))
				return
			}

			ctx := context.WithValue(r.Context(), ensureRequestKey, input)
			ctx = context.WithValue(ctx, profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ensureRequestFromContext(ctx context.Context) (model.EnsureRequest, config.Profile) {
	input, _ := ctx.Value(ensureRequestKey).(model.EnsureRequest)
	profile, _ := ctx.Value(profileKey).(config.Profile)
	return input, profile
}
