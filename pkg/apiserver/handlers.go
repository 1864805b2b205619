package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/acorn-io/dns-converge/pkg/db"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/provision"
	"github.com/acorn-io/dns-converge/pkg/version"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type handler struct {
	log  *logrus.Entry
	opts Options
}

func newHandler(log *logrus.Entry, opts Options) *handler {
	return &handler{
		log:  log,
		opts: opts,
	}
}

type statusResponse struct {
	DNS       *model.ConvergenceResponse `json:"dns"`
	CheckedAt time.Time                  `json:"checkedAt"`
}

type ensureResponse struct {
	Profile string `json:"profile"`
	Records int    `json:"records"`
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	v := version.Get()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"success": false}`))
	}
}

func (h *handler) instanceID(w http.ResponseWriter, r *http.Request) {
	if h.opts.InstanceID == "" || mux.Vars(r)["id"] != h.opts.InstanceID {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	if h.opts.Database == nil {
		writeError(w, http.StatusNotFound, db.ErrNoReport)
		return
	}

	resp, at, err := h.opts.Database.LatestReport(r.Context(), r.URL.Query().Get("kind"))
	if errors.Is(err, db.ErrNoReport) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeSuccess(w, statusResponse{DNS: resp, CheckedAt: at}, "")
}

// ensure runs every adapter of the authenticated profile. Each request gets a
// fresh orchestrator: the caller already skips repeated identical requests.
func (h *handler) ensure(w http.ResponseWriter, r *http.Request) {
	input, profile := ensureRequestFromContext(r.Context())

	for _, record := range input.Records {
		if err := validateRecord(record); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	log := h.log.WithField("profile", input.Profile)
	orchestrator := provision.NewOrchestrator(log, h.opts.Factory)
	if err := orchestrator.EnsureAll(r.Context(), input.Records, profile.Adapters); err != nil {
		handleError(w, err)
		return
	}

	writeSuccess(w, ensureResponse{Profile: input.Profile, Records: len(input.Records)}, "ensured records for profile "+input.Profile)
}

func validateRecord(record model.Record) error {
	if err := record.Type.IsValid(); err != nil {
		return err
	}

	if record.Name == "" || record.Domain == "" {
		return fmt.Errorf("record name and domain must be provided")
	}

	if record.Data == "" {
		return fmt.Errorf("record %s must have data", record.Name)
	}

	if record.Type == model.RecordTypeA {
		if ip := net.ParseIP(record.Data); ip == nil || ip.To4() == nil {
			return fmt.Errorf("value %v is not a valid IPv4 address", record.Data)
		}
	}

	return nil
}
