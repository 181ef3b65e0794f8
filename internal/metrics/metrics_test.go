package metrics

import (
	"testing"

	"github.com/dtrask/wsrelay"
)

func TestMetrics_Gather(t *testing.T) {
	stats := wsrelay.ManagerStats{
		Connected:         true,
		BacklogDepth:      3,
		ReconnectAttempts: 2,
		Reconnects:        1,
	}
	m := New("wstap", func() wsrelay.ManagerStats { return stats })

	m.ObserveMessage(true)
	m.ObserveMessage(true)
	m.ObserveMessage(false)
	m.ObserveSinkDrop()

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	got := map[string]float64{}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			name := fam.GetName()
			for _, label := range metric.GetLabel() {
				name += "/" + label.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				got[name] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				got[name] = metric.GetGauge().GetValue()
			}
		}
	}

	want := map[string]float64{
		"wstap_relay_messages_total/structured":  2,
		"wstap_relay_messages_total/raw":         1,
		"wstap_sink_dropped_total":               1,
		"wstap_relay_connected":                  1,
		"wstap_relay_backlog_depth":              3,
		"wstap_relay_reconnect_attempts_total":   2,
		"wstap_relay_reconnects_total":           1,
	}
	for name, w := range want {
		if got[name] != w {
			t.Errorf("%s = %v, want %v", name, got[name], w)
		}
	}
}
