package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sr.status,
			"duration":   time.Since(start).String(),
		}).Debug("Handled request")
	})
}
