// Package natsutil provides typed NATS publish/request helpers with
// OpenTelemetry trace propagation through message headers.
package natsutil

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes it to the subject.
// Trace context from ctx is injected into the message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Request sends a JSON-encoded request and decodes the JSON reply.
// The ctx deadline bounds the round trip.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	data, err := json.Marshal(req)
	if err != nil {
		return zero, err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, err
	}
	var result Resp
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return zero, err
	}
	return result, nil
}

// Serve registers a queue-subscribed responder for Request calls on the
// subject. The handler must be total: failures belong in the reply type,
// not a Go error. Malformed requests are silently dropped. Trace context
// is extracted from headers and passed to the handler.
func Serve[Req, Resp any](nc *nats.Conn, subject, queue string, handler func(context.Context, Req) Resp) (*nats.Subscription, error) {
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var req Req
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return // drop malformed requests
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		resp := handler(ctx, req)
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		_ = msg.Respond(data)
	})
}
