// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package discordbot

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for postsTotal beyond the bbsmech.Outcome strings.
const (
	resultError    = "error"
	resultCooldown = "cooldown"
)

var (
	postsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bbs_posts_total",
			Help: "Total number of post attempts, by result",
		},
		[]string{"result"},
	)

	postDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bbs_post_duration_seconds",
			Help:    "Time taken to derive a credential and submit a post",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Router returns the HTTP handler for the bot's operational endpoints:
// /metrics for Prometheus and /healthz for liveness checks.
func Router() http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	return r
}
