package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the election counters. A nil *Metrics records nothing.
type Metrics struct {
	votesRecorded    prometheus.Counter
	duplicateVotes   prometheus.Counter
	nominations      *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
}

// NewMetrics registers the election counters with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		votesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_votes_recorded_total",
			Help: "Votes committed to the store",
		}),
		duplicateVotes: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_duplicate_votes_total",
			Help: "Vote submissions rejected because the voter already voted for the position",
		}),
		nominations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "election_nominations_total",
			Help: "Nomination submissions by outcome",
		}, []string{"outcome"}),
		phaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "election_phase_transitions_total",
			Help: "Session phase transitions by target phase",
		}, []string{"phase"}),
	}
}

func (m *Metrics) voteRecorded() {
	if m != nil {
		m.votesRecorded.Inc()
	}
}

func (m *Metrics) duplicateVote() {
	if m != nil {
		m.duplicateVotes.Inc()
	}
}

func (m *Metrics) nomination(outcome string) {
	if m != nil {
		m.nominations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) phaseTransition(phase Phase) {
	if m != nil {
		m.phaseTransitions.WithLabelValues(string(phase)).Inc()
	}
}
