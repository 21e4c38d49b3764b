package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.viam.com/rdk/logging"
)

const maxBodyBytes = 1 << 20

// decodeJSON decodes the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, logger logging.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debugf("failed to encode response: %v", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Session any    `json:"session,omitempty"`
}

func writeError(w http.ResponseWriter, logger logging.Logger, status int, err error) {
	writeJSON(w, logger, status, errorBody{Error: err.Error()})
}
