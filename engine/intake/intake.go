// Package intake consumes analysis submissions from NATS and feeds them
// to the task coordinator.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/task"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/natsutil"
)

const (
	// SubjectSubmit carries analysis submissions.
	SubjectSubmit = "pulsewire.analysis.submit"
	// SubjectCompleted carries completion events for downstream consumers.
	SubjectCompleted = "pulsewire.analysis.completed"
	// SubjectDLQ receives submissions that could not be accepted.
	SubjectDLQ = "pulsewire.analysis.dlq"

	// MaxRetries before a deferred submission goes to the DLQ.
	MaxRetries = 3

	// maxInflight defers new submissions while this many runs are live.
	maxInflight = 8

	queueGroup  = "pulsewire-workers"
	retryHeader = "X-Retry-Count"
)

// dlqMessage is published to the DLQ for a rejected submission. Request
// carries the original payload as a string because a malformed
// submission is not valid JSON.
type dlqMessage struct {
	Request string `json:"request"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// Consumer wires the submit subject to the coordinator.
type Consumer struct {
	nc    *nats.Conn
	coord *task.Coordinator
}

func NewConsumer(nc *nats.Conn, coord *task.Coordinator) *Consumer {
	return &Consumer{nc: nc, coord: coord}
}

// Start queue-subscribes the submit subject. ctx bounds the runs the
// consumer starts, not the subscription itself; stop consuming by
// unsubscribing the returned subscription.
func (c *Consumer) Start(ctx context.Context) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(SubjectSubmit, queueGroup, func(msg *nats.Msg) {
		c.handle(ctx, msg)
	})
}

type action int

const (
	actionStart action = iota
	actionRequeue
	actionReject
)

// decide classifies one submission: start it, requeue it for a later
// delivery, or reject it to the DLQ. Malformed and invalid submissions
// are rejected outright; a saturated worker requeues until the retry
// budget runs out.
func decide(data []byte, retries, inflight int) (domain.AnalysisRequest, action, error) {
	var req domain.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, actionReject, fmt.Errorf("malformed submission: %w", err)
	}
	req.Normalize()
	if err := domain.ValidateRequest(req); err != nil {
		return req, actionReject, err
	}
	if inflight >= maxInflight {
		if retries+1 >= MaxRetries {
			return req, actionReject, errors.New("worker saturated")
		}
		return req, actionRequeue, nil
	}
	return req, actionStart, nil
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	retries := retryCount(msg)
	req, act, cause := decide(msg.Data, retries, c.coord.Inflight())
	switch act {
	case actionReject:
		slog.Warn("intake: submission rejected", "retries", retries, "error", cause)
		c.deadLetter(msg.Data, cause, retries)
	case actionRequeue:
		slog.Info("intake: worker saturated, requeueing", "retries", retries+1)
		c.requeue(msg, retries+1)
	case actionStart:
		t := c.coord.Start(ctx, req)
		slog.Info("intake: analysis accepted", "task_id", t.ID, "query", req.Query)
		if msg.Reply != "" {
			if data, err := json.Marshal(t); err == nil {
				_ = msg.Respond(data)
			}
		}
	}
}

func (c *Consumer) requeue(msg *nats.Msg, retries int) {
	retry := nats.NewMsg(SubjectSubmit)
	retry.Data = msg.Data
	retry.Header.Set(retryHeader, strconv.Itoa(retries))
	if err := c.nc.PublishMsg(retry); err != nil {
		slog.Error("intake: requeue failed", "error", err)
	}
}

func (c *Consumer) deadLetter(data []byte, cause error, retries int) {
	payload, _ := json.Marshal(dlqMessage{Request: string(data), Error: cause.Error(), Retries: retries})
	if err := c.nc.Publish(SubjectDLQ, payload); err != nil {
		slog.Error("intake: dead letter publish failed", "error", err)
	}
}

func retryCount(msg *nats.Msg) int {
	if msg.Header == nil {
		return 0
	}
	n, _ := strconv.Atoi(msg.Header.Get(retryHeader))
	return n
}

// PublishCompleted returns a coordinator hook that announces finished
// runs on the completed subject.
func PublishCompleted(nc *nats.Conn) func(task.CompletedEvent) {
	return func(e task.CompletedEvent) {
		if err := natsutil.Publish(context.Background(), nc, SubjectCompleted, e); err != nil {
			slog.Error("intake: completed publish failed", "task_id", e.TaskID, "error", err)
		}
	}
}
