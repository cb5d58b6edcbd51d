package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/quill/internal/event/topic"
)

func record(got *[]string, name string) HandlerFunc {
	return func(_ context.Context, ev Event) error {
		*got = append(*got, name+":"+ev.Topic.String())
		return nil
	}
}

func TestPublishMatchesPatterns(t *testing.T) {
	b := NewBus()
	var got []string
	b.SubscribeFunc("document.changed", record(&got, "exact"))
	b.SubscribeFunc("document.*", record(&got, "single"))
	b.SubscribeFunc("**", record(&got, "all"))
	b.SubscribeFunc("config.*", record(&got, "config"))

	if err := b.Publish(context.Background(), New(TopicDocumentChanged, nil, "test")); err != nil {
		t.Fatal(err)
	}
	want := []string{"exact:document.changed", "single:document.changed", "all:document.changed"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestPublishPriorityOrder(t *testing.T) {
	b := NewBus()
	var got []string
	b.SubscribeFunc("a.b", record(&got, "low"), WithPriority(PriorityLow))
	b.SubscribeFunc("a.b", record(&got, "normal1"))
	b.SubscribeFunc("a.b", record(&got, "critical"), WithPriority(PriorityCritical))
	b.SubscribeFunc("a.b", record(&got, "normal2"))

	b.Publish(context.Background(), New("a.b", nil, ""))
	want := []string{"critical:a.b", "normal1:a.b", "normal2:a.b", "low:a.b"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPanicIsRecovered(t *testing.T) {
	var panicked any
	b := NewBus(WithPanicHandler(func(_ Event, _ *Subscription, r any) { panicked = r }))
	var got []string
	b.SubscribeFunc("x", func(context.Context, Event) error { panic("boom") })
	b.SubscribeFunc("x", record(&got, "after"))

	err := b.Publish(context.Background(), New("x", nil, ""))
	if !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("expected ErrHandlerPanic, got %v", err)
	}
	var perr *PanicError
	if !errors.As(err, &perr) || perr.Value != "boom" {
		t.Errorf("expected PanicError with value boom, got %v", err)
	}
	if panicked != "boom" {
		t.Errorf("expected panic handler call, got %v", panicked)
	}
	if len(got) != 1 {
		t.Error("later handlers must still run")
	}
	if s := b.Stats(); s.HandlerPanics != 1 || s.Delivered != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestHandlerErrorsJoined(t *testing.T) {
	b := NewBus()
	e1, e2 := errors.New("one"), errors.New("two")
	b.SubscribeFunc("x", func(context.Context, Event) error { return e1 })
	b.SubscribeFunc("x", func(context.Context, Event) error { return e2 })

	err := b.Publish(context.Background(), New("x", nil, ""))
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("expected both errors, got %v", err)
	}
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Topic != "x" {
		t.Errorf("expected HandlerError, got %v", err)
	}
}

func TestFilterOnceAndPause(t *testing.T) {
	b := NewBus()
	var got []string
	b.SubscribeFunc("n", record(&got, "even"), WithFilter(func(ev Event) bool { return ev.Payload.(int)%2 == 0 }))
	b.SubscribeFunc("n", record(&got, "once"), WithOnce())
	paused, _ := b.SubscribeFunc("n", record(&got, "paused"))
	paused.Pause()

	for i := range 4 {
		b.Publish(context.Background(), New("n", i, ""))
	}
	want := []string{"even:n", "once:n", "even:n"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if b.Stats().Subscriptions != 2 {
		t.Errorf("expected once subscription removed, got %d", b.Stats().Subscriptions)
	}

	paused.Resume()
	got = nil
	b.Publish(context.Background(), New("n", 1, ""))
	if len(got) != 1 || got[0] != "paused:n" {
		t.Errorf("expected resumed delivery, got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	var got []string
	s, _ := b.SubscribeFunc("x", record(&got, "a"))
	if err := b.Unsubscribe(s); err != nil {
		t.Fatal(err)
	}
	if err := b.Unsubscribe(s); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}
	b.Publish(context.Background(), New("x", nil, ""))
	if len(got) != 0 {
		t.Errorf("unsubscribed handler ran: %v", got)
	}

	s2, _ := b.SubscribeFunc("x", record(&got, "b"))
	s2.Cancel()
	s2.Cancel()
	if b.Stats().Subscriptions != 0 {
		t.Error("cancel must remove the subscription")
	}
}

func TestInvalidInput(t *testing.T) {
	b := NewBus()
	if _, err := b.Subscribe("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := b.SubscribeFunc("bad..topic", record(new([]string), "x")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
	if err := b.Publish(context.Background(), New(topic.Topic("a.*"), nil, "")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("publishing a pattern must fail, got %v", err)
	}
}

func TestPublishStopsOnCancel(t *testing.T) {
	b := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	b.SubscribeFunc("x", func(context.Context, Event) error { cancel(); return nil })
	b.SubscribeFunc("x", record(&got, "late"))

	err := b.Publish(ctx, New("x", nil, ""))
	if !errors.Is(err, context.Canceled) || len(got) != 0 {
		t.Errorf("expected cancellation before second handler, got %v %v", err, got)
	}
}
