package network

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ftp_server_active_connections",
		Help: "Current number of connected clients",
	})
	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftp_server_commands_total",
		Help: "Commands received, by verb",
	}, []string{"verb"})
	bytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ftp_server_bytes_sent_total",
		Help: "File bytes sent to clients",
	})
	bytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ftp_server_bytes_received_total",
		Help: "File bytes received from clients",
	})
	transfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ftp_server_transfers_total",
		Help: "Finished transfers, by direction and outcome",
	}, []string{"direction", "outcome"})
	transferDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ftp_server_transfer_duration_seconds",
		Help:    "Duration of completed transfers",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})
)

func init() {
	prometheus.MustRegister(activeConnections, commandsTotal, bytesSent, bytesReceived, transfersTotal, transferDuration)
}

// ServeMetrics exposes /metrics on addr in the background.
func ServeMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "ServeMetrics",
			"addr":     addr,
		}).Info("Metrics endpoint listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "ServeMetrics",
				"error":    err.Error(),
			}).Error("Metrics server failed")
		}
	}()

	return srv
}
