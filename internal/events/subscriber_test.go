package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := StartEmbedded("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv.URL()
}

func TestNATSSubscriber_ReceivesMessages(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	if err := pub.conn.Publish(TopicPledgePut, []byte(`{"pledge":{"id":"day-1"}}`)); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	pub.Flush()

	select {
	case msg := <-ch:
		if string(msg) != `{"pledge":{"id":"day-1"}}` {
			t.Errorf("got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSSubscriber_Cancel(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNATSSubscriber_CancelDuringMessages(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = pub.conn.Publish(TopicPledgePut, []byte(`{"pledge":{"id":"x"}}`))
		}
		pub.Flush()
	}()

	// Cancel while messages are being sent; must not panic.
	cancel()
	<-done

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNATSSubscriber_PledgeRoundTrip(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url, nats.Name("givecal-test"))
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicPledgePut)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	day, name := 12, "Ada"
	rec := &model.PledgeRecord{ID: model.DayID(day), Amount: decimal.RequireFromString("12.50"), Day: &day, Name: &name}
	if err := pub.Publish(context.Background(), TopicPledgePut, PledgePut{Pledge: rec}); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	pub.Flush()

	select {
	case data := <-ch:
		got, err := DecodePledgePut(data)
		if err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if got.ID != "day-12" || !got.Amount.Equal(rec.Amount) || got.PledgerName() != "Ada" {
			t.Errorf("unexpected pledge %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pledge")
	}
	if sub.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", sub.Dropped())
	}
}

func TestNATSSubscriber_ImplementsSubscriber(t *testing.T) {
	var _ Subscriber = (*NATSSubscriber)(nil)
}
