package metrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
)

// gather collects the counter values of the metrics registered in reg,
// keyed by the first label value if there is one.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	r := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			k := mf.GetName()
			if l := m.GetLabel(); len(l) > 0 {
				k = l[0].GetValue()
			}
			r[k] = m.GetCounter().GetValue()
		}
	}
	return r
}

func TestCounterVec(t *testing.T) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "complements"}, []string{"kind"})
	o := NewPromCounterVec(v)
	reg := prometheus.NewRegistry()
	reg.MustRegister(o)
	o.Observe(1, "random")
	o.Observe(1, "random")
	o.Observe(1, "command")
	want := map[string]float64{"random": 2, "command": 1}
	if diff := cmp.Diff(want, gather(t, reg)); diff != "" {
		t.Errorf("wrong counts (-want +got):\n%s", diff)
	}
}

func TestObserveNil(t *testing.T) {
	// Must not panic.
	Observe(nil, 1)
	c := NewPromCounter(prometheus.NewCounter(prometheus.CounterOpts{Name: "n"}))
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	Observe(c, 3)
	if diff := cmp.Diff(map[string]float64{"n": 3}, gather(t, reg)); diff != "" {
		t.Errorf("wrong count (-want +got):\n%s", diff)
	}
}
