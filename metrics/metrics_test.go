package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewPedanticRegistry()
	test.That(t, reg.Register(c), test.ShouldBeNil)

	c.ObserveSOAPCall("device", "GetScopes", OutcomeOK, 20*time.Millisecond)
	c.ObserveSOAPCall("device", "GetScopes", OutcomeOK, 30*time.Millisecond)
	c.ObserveSOAPCall("media", "GetProfiles", OutcomeFault, time.Millisecond)
	c.ObserveBootstrapStep("GetServices", "skipped")
	c.SetSessions(3)

	test.That(t, testutil.ToFloat64(c.soapCalls.WithLabelValues("device", "GetScopes", OutcomeOK)), test.ShouldEqual, 2)
	test.That(t, testutil.ToFloat64(c.soapCalls.WithLabelValues("media", "GetProfiles", OutcomeFault)), test.ShouldEqual, 1)
	test.That(t, testutil.ToFloat64(c.steps.WithLabelValues("GetServices", "skipped")), test.ShouldEqual, 1)
	test.That(t, testutil.ToFloat64(c.sessions), test.ShouldEqual, 3)

	// counter (2 series) + histogram (2 series) + steps (1) + gauge (1)
	test.That(t, testutil.CollectAndCount(c), test.ShouldEqual, 6)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveSOAPCall("device", "GetScopes", OutcomeOK, time.Second)
	r.ObserveBootstrapStep("GetScopes", OutcomeOK)
}
