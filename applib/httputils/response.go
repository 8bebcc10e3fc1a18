package httputils

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func HandleAPIResponse(w http.ResponseWriter, r *http.Request, resp interface{}, err error, status int) {
	if err != nil {
		logRequestError(r, err, status)
		http.Error(w, err.Error(), status)
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		logRequestError(r, err, http.StatusInternalServerError)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
	}
	w.Write(data)
}

// DecodeJSONBody reads the request body into dst, rejecting unknown fields.
func DecodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func logRequestError(r *http.Request, err error, status int) {
	entry := log.WithFields(log.Fields{
		"remote": r.RemoteAddr,
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}
}
