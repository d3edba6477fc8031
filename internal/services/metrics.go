// Package services – pipeline metrics
//
// Prometheus counters for event outcomes, intents, sends and quote statuses.
package services

import "github.com/prometheus/client_golang/prometheus"

// Pipeline counters. Labels come from closed sets (Outcome, intent.Intent,
// quote.Status, send result), so cardinality stays fixed.
var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_events_total",
			Help: "Inbound events by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_intents_total",
			Help: "Classified inbound messages by intent.",
		},
		[]string{"intent"},
	)

	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_sends_total",
			Help: "Outbound conversational sends by result.",
		},
		[]string{"result"},
	)

	quotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_quotes_total",
			Help: "Quote transitions by resulting status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal, intentsTotal, sendsTotal, quotesTotal)
}

func countSend(err error) {
	if err != nil {
		sendsTotal.WithLabelValues("error").Inc()
		return
	}
	sendsTotal.WithLabelValues("ok").Inc()
}
