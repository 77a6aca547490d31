package metrics

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	g := NewWithT(t)

	reg := prometheus.NewRegistry()
	r := New(reg)

	r.KeyRefresh(ResultSuccess)
	r.KeyRefresh(ResultSuccess)
	r.KeyRefresh(ResultFailure)
	r.Verification("TokenExpired")
	r.Handshake(ResultSuccess)
	r.PairCheck("valid")

	g.Expect(testutil.ToFloat64(r.keyRefreshes.WithLabelValues(ResultSuccess))).To(Equal(2.0))
	g.Expect(testutil.ToFloat64(r.keyRefreshes.WithLabelValues(ResultFailure))).To(Equal(1.0))
	g.Expect(testutil.ToFloat64(r.verifications.WithLabelValues("TokenExpired"))).To(Equal(1.0))
	g.Expect(testutil.ToFloat64(r.handshakes.WithLabelValues(ResultSuccess))).To(Equal(1.0))
	g.Expect(testutil.ToFloat64(r.pairChecks.WithLabelValues("valid"))).To(Equal(1.0))

	families, err := reg.Gather()
	g.Expect(err).ToNot(HaveOccurred())
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	g.Expect(names).To(ConsistOf(
		"integration_auth_key_refreshes_total",
		"integration_auth_verifications_total",
		"integration_auth_handshakes_total",
		"integration_auth_token_pair_checks_total",
	))
}

func TestRecorder_Nil(t *testing.T) {
	g := NewWithT(t)

	var r *Recorder
	g.Expect(func() {
		r.KeyRefresh(ResultSuccess)
		r.Verification(ResultSuccess)
		r.Handshake(ResultFailure)
		r.PairCheck("invalid")
	}).ToNot(Panic())
}
