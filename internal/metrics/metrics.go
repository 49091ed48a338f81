// Package metrics exposes gameplay and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"chess-quiz-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements app.Metrics and records HTTP traffic.
type Collector struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	finalScores       prometheus.Histogram
	questionsServed   *prometheus.CounterVec
	answers           *prometheus.CounterVec
	pointsAwarded     prometheus.Counter
	qrGenerated       prometheus.Counter
	httpStatus        *prometheus.CounterVec
	httpLatency       prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chessquiz_sessions_started_total",
			Help: "Game sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chessquiz_sessions_completed_total",
			Help: "Game sessions ended.",
		}),
		finalScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chessquiz_final_score",
			Help:    "Score of ended sessions.",
			Buckets: []float64{0, 10, 25, 50, 100, 200, 400, 800},
		}),
		questionsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chessquiz_questions_served_total",
			Help: "Questions served, by difficulty.",
		}, []string{"difficulty"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chessquiz_answers_total",
			Help: "Answers evaluated, by outcome.",
		}, []string{"correct"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chessquiz_points_awarded_total",
			Help: "Points added to session scores.",
		}),
		qrGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chessquiz_qrcodes_generated_total",
			Help: "QR code images written to disk.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chessquiz_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chessquiz_http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionsCompleted,
		c.finalScores,
		c.questionsServed,
		c.answers,
		c.pointsAwarded,
		c.qrGenerated,
		c.httpStatus,
		c.httpLatency,
	)
	return c
}

func (c *Collector) SessionStarted() {
	c.sessionsStarted.Inc()
}

func (c *Collector) SessionCompleted(score int) {
	c.sessionsCompleted.Inc()
	c.finalScores.Observe(float64(score))
}

func (c *Collector) QuestionServed(difficulty domain.Difficulty) {
	c.questionsServed.WithLabelValues(string(difficulty)).Inc()
}

func (c *Collector) AnswerEvaluated(correct bool, points int) {
	c.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
	c.pointsAwarded.Add(float64(points))
}

// QRCodeGenerated counts a freshly written image; cache hits are not counted.
func (c *Collector) QRCodeGenerated() {
	c.qrGenerated.Inc()
}

func (c *Collector) RecordHTTP(statusCode int, d time.Duration) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
