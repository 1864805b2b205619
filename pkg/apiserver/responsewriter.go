package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/sirupsen/logrus"
)

func writeError(w http.ResponseWriter, httpStatus int, err error) {
	logrus.Errorf("got a response error: %v", err)
	o := model.ErrorResponse{
		Status:  httpStatus,
		Message: err.Error(),
	}
	res, _ := json.Marshal(o)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}

// handleError picks the status for a provisioning failure.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnsupportedConfiguration), errors.Is(err, model.ErrDomainNotProvisioned):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, model.ErrProviderAPI), errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrUnsupportedPagination):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeSuccess(w http.ResponseWriter, data interface{}, msg string) {
	res, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if msg != "" {
		logrus.Debug(msg)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(res)
}
