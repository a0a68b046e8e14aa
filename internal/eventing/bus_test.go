package eventing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memberAdded struct {
	AccountID  string
	Principal  string
	OccurredAt time.Time
}

func TestInMemoryBus_PublishDelivers(t *testing.T) {
	bus := NewInMemoryBus()
	var got memberAdded
	bus.Subscribe(EventTypeOf[memberAdded](), func(ctx context.Context, event any) error {
		evt, ok := event.(memberAdded)
		if !ok {
			return ErrInvalidEventType
		}
		got = evt
		return nil
	})

	want := memberAdded{AccountID: "acct-1", Principal: "alice"}
	if err := bus.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestInMemoryBus_NilEvent(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestBuildEnvelope_AccountFromPayload(t *testing.T) {
	evt := memberAdded{AccountID: "acct-7", Principal: "bob", OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	env, err := BuildEnvelope(evt, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.AccountID != "acct-7" {
		t.Fatalf("expected account id from payload, got %q", env.AccountID)
	}
	if !env.OccurredAt.Equal(evt.OccurredAt) {
		t.Fatalf("expected occurred at from payload, got %v", env.OccurredAt)
	}
	if env.EventID == "" || env.CorrelationID != env.EventID {
		t.Fatalf("expected generated event id to seed correlation id, got %q/%q", env.EventID, env.CorrelationID)
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	registry := NewRegistry()
	registry.Register(memberAdded{})

	env, err := BuildEnvelope(memberAdded{AccountID: "acct-2", Principal: "carol"}, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	decoded, err := registry.DecodePayload(env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	evt, ok := decoded.(memberAdded)
	if !ok {
		t.Fatalf("expected memberAdded, got %T", decoded)
	}
	if evt.Principal != "carol" {
		t.Fatalf("expected carol, got %q", evt.Principal)
	}
}
