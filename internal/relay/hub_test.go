package relay

import (
	"testing"
)

func TestHub_PublishInRegistrationOrder(t *testing.T) {
	h := NewHub[int]()

	var order []string
	h.Subscribe(func(v int) { order = append(order, "first") })
	h.Subscribe(func(v int) { order = append(order, "second") })
	h.Subscribe(func(v int) { order = append(order, "third") })

	h.Publish(1)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("deliveries = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestHub_Detach(t *testing.T) {
	h := NewHub[int]()

	var got []int
	sub := h.Subscribe(func(v int) { got = append(got, v) })

	h.Publish(1)
	sub.Detach()
	h.Publish(2)

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("got = %v, want [1]", got)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}

	// Detach is idempotent
	sub.Detach()
}

func TestHub_Complete(t *testing.T) {
	h := NewHub[string]()

	var count int
	h.Subscribe(func(string) { count++ })
	h.Subscribe(func(string) { count++ })

	h.Publish("a")
	h.Complete()
	h.Publish("b")

	if count != 2 {
		t.Errorf("deliveries = %d, want 2", count)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0 after Complete", h.Len())
	}
}

func TestHub_SubscribeAfterComplete(t *testing.T) {
	h := NewHub[int]()
	h.Complete()

	var called bool
	h.Subscribe(func(int) { called = true })
	h.Publish(1)

	if called {
		t.Error("subscriber registered after Complete must not receive values")
	}
}

func TestHub_DetachDuringDelivery(t *testing.T) {
	h := NewHub[int]()

	var second *Subscription[int]
	var got []int

	// First subscriber detaches the second mid-delivery; the second must
	// not observe the in-flight value.
	h.Subscribe(func(v int) { second.Detach() })
	second = h.Subscribe(func(v int) { got = append(got, v) })

	h.Publish(1)

	if len(got) != 0 {
		t.Errorf("detached subscriber received %v", got)
	}
}
