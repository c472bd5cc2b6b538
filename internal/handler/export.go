package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/jobs"
	"github.com/web3-frozen/portfolio-exporter/internal/metrics"
)

// Export serves one source's metrics as plain-text exposition lines.
// The address comes from ?address=; sources that accept several take
// repeated ?addresses= params.
func Export(logger *slog.Logger, src exporter.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := exporter.Request{
			Address:   r.URL.Query().Get("address"),
			Addresses: r.URL.Query()["addresses"],
		}

		start := time.Now()
		body, err := src.Collect(r.Context(), req)
		metrics.CollectDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			status := statusFor(err)
			metrics.CollectTotal.WithLabelValues(src.Name(), "error").Inc()
			logger.Error("collect failed",
				"source", src.Name(),
				"status", status,
				"error", err,
			)
			http.Error(w, err.Error(), status)
			return
		}

		metrics.CollectTotal.WithLabelValues(src.Name(), "ok").Inc()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func statusFor(err error) int {
	var verr exporter.ValidationError
	var terr *jobs.TimeoutError
	var uerr *fetch.UpstreamError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &terr):
		return http.StatusGatewayTimeout
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
