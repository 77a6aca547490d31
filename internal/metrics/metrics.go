package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "integration_auth"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder counts engine outcomes. A nil *Recorder records nothing.
type Recorder struct {
	keyRefreshes  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	handshakes    *prometheus.CounterVec
	pairChecks    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		keyRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_refreshes_total",
			Help:      "Number of pod verification key refreshes by result",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Number of token verifications by result",
		}, []string{"result"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Number of application authentication handshakes by result",
		}, []string{"result"}),
		pairChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_pair_checks_total",
			Help:      "Number of application token pair validations by result",
		}, []string{"result"}),
	}
	reg.MustRegister(r.keyRefreshes, r.verifications, r.handshakes, r.pairChecks)
	return r
}

func (r *Recorder) KeyRefresh(result string) {
	if r == nil {
		return
	}
	r.keyRefreshes.WithLabelValues(result).Inc()
}

// Verification records a token verification; result is ResultSuccess or a
// failure kind name.
func (r *Recorder) Verification(result string) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(result).Inc()
}

func (r *Recorder) Handshake(result string) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(result).Inc()
}

func (r *Recorder) PairCheck(result string) {
	if r == nil {
		return
	}
	r.pairChecks.WithLabelValues(result).Inc()
}
