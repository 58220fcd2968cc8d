package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/dejobratic/centralcompras/internal/events"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newBus(t *testing.T) (*events.PubSubEventBus, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	created, err := client.CreateTopic(ctx, "orders-created")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	changed, err := client.CreateTopic(ctx, "orders-status-changed")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	bus, err := events.NewPubSubEventBus(created, changed)
	if err != nil {
		t.Fatalf("NewPubSubEventBus: %v", err)
	}
	return bus, srv
}

func TestPubSubEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes order created", func(t *testing.T) {
		bus, srv := newBus(t)

		if err := bus.PublishOrderCreated(ctx, 42); err != nil {
			t.Fatalf("PublishOrderCreated: %v", err)
		}

		messages := srv.Messages()
		if len(messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(messages))
		}

		var payload events.OrderCreated
		if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.OrderID != 42 || payload.OccurredAt.IsZero() {
			t.Errorf("unexpected payload %#v", payload)
		}
		if got := messages[0].Attributes["eventType"]; got != events.TopicOrderCreated {
			t.Errorf("expected eventType %s, got %q", events.TopicOrderCreated, got)
		}
		if got := messages[0].Attributes["orderId"]; got != "42" {
			t.Errorf("expected orderId 42, got %q", got)
		}
	})

	t.Run("publishes status change with both statuses", func(t *testing.T) {
		bus, srv := newBus(t)

		if err := bus.PublishOrderStatusChanged(ctx, 7, domain.StatusPending, domain.StatusApproved); err != nil {
			t.Fatalf("PublishOrderStatusChanged: %v", err)
		}

		messages := srv.Messages()
		if len(messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(messages))
		}

		var payload events.OrderStatusChanged
		if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.From != domain.StatusPending || payload.To != domain.StatusApproved {
			t.Errorf("unexpected transition %s -> %s", payload.From, payload.To)
		}
	})

	t.Run("requires both topics", func(t *testing.T) {
		if _, err := events.NewPubSubEventBus(nil, nil); err == nil {
			t.Error("expected error for missing topics")
		}
	})
}

func TestLogEventBus(t *testing.T) {
	bus := events.NewLogEventBus(nil)

	if err := bus.PublishOrderCreated(context.Background(), 1); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := bus.PublishOrderStatusChanged(context.Background(), 1, domain.StatusPending, domain.StatusShipped); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
