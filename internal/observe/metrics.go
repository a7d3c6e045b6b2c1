package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the protocol engine's operational counters. A nil
// *Metrics is safe to call, so tests can pass nothing.
type Metrics struct {
	Enrollments      prometheus.Counter
	ChallengesIssued prometheus.Counter
	AuthSuccess      prometheus.Counter
	AuthFailed       prometheus.Counter
	Revocations      prometheus.Counter
	SessionsRevoked  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Enrollments: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_enrollments_total",
			Help: "DNA key enrollments completed.",
		}),
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_challenges_issued_total",
			Help: "Authentication challenges issued.",
		}),
		AuthSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_authentications_success_total",
			Help: "Authentications that produced a session.",
		}),
		AuthFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_authentications_failed_total",
			Help: "Authentications rejected with the uniform failure.",
		}),
		Revocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_revocations_total",
			Help: "Keys revoked (first revocation only).",
		}),
		SessionsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "helix_sessions_revoked_total",
			Help: "Sessions revoked by explicit logout.",
		}),
	}
}

func (m *Metrics) IncEnrollments() {
	if m != nil {
		m.Enrollments.Inc()
	}
}

func (m *Metrics) IncChallengesIssued() {
	if m != nil {
		m.ChallengesIssued.Inc()
	}
}

func (m *Metrics) IncAuthSuccess() {
	if m != nil {
		m.AuthSuccess.Inc()
	}
}

func (m *Metrics) IncAuthFailed() {
	if m != nil {
		m.AuthFailed.Inc()
	}
}

func (m *Metrics) IncRevocations() {
	if m != nil {
		m.Revocations.Inc()
	}
}

func (m *Metrics) IncSessionsRevoked() {
	if m != nil {
		m.SessionsRevoked.Inc()
	}
}
