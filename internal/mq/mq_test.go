package mq

import (
	"context"
	"testing"

	"github.com/cbt-marketplace/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingBackend struct {
	channels []string
}

func (b *recordingBackend) Publish(_ context.Context, channel string, _ []byte, _ map[string]string) (string, error) {
	b.channels = append(b.channels, channel)
	return "id", nil
}

func (b *recordingBackend) Subscribe(_ context.Context, channel string, _ Handler) error {
	b.channels = append(b.channels, channel)
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func TestOpenWithoutBackend(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{})
	if err != nil || m != nil {
		t.Fatalf("Open() = %v, %v; want nil, nil", m, err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.MQConfig{Backend: "kafka"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestMQUsesBoundChannel(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend, "marketplace.events")

	if _, err := m.Publish(context.Background(), []byte("{}"), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := m.Subscribe(context.Background(), func(context.Context, Message) error { return nil }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for _, ch := range backend.channels {
		if ch != "marketplace.events" {
			t.Fatalf("channel = %q", ch)
		}
	}
	if m.Channel() != "marketplace.events" {
		t.Fatalf("Channel() = %q", m.Channel())
	}
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{
		"type":  "article.published",
		"raw":   []byte("bytes"),
		"count": int32(3),
	})
	if attrs["type"] != "article.published" || attrs["raw"] != "bytes" || attrs["count"] != "3" {
		t.Fatalf("attrs = %v", attrs)
	}
	if headersToAttributes(nil) != nil {
		t.Fatal("empty headers should map to nil")
	}
}

func TestRoutingKey(t *testing.T) {
	if got := routingKey(map[string]string{AttrKind: "psychologist.changed"}); got != "psychologist.changed" {
		t.Fatalf("routingKey = %q", got)
	}
	if got := routingKey(nil); got != "default" {
		t.Fatalf("routingKey(nil) = %q", got)
	}
}

func TestAttributesToHeaders(t *testing.T) {
	headers := attributesToHeaders(map[string]string{AttrKind: "user.registered"})
	if headers[AttrKind] != "user.registered" || len(headers) != 1 {
		t.Fatalf("headers = %v", headers)
	}
}
