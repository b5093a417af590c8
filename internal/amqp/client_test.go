package amqp

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoffDoublesUpToCap(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for attempt, w := range want {
		if got := exponentialBackoff(attempt); got != w {
			t.Errorf("attempt %d: backoff = %v, want %v", attempt, got, w)
		}
	}
	for _, attempt := range []int{5, 6, 20, 64} {
		if got := exponentialBackoff(attempt); got != maxBackoff {
			t.Errorf("attempt %d: backoff = %v, want cap %v", attempt, got, maxBackoff)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	dropped := []string{
		"dial tcp 127.0.0.1:5672: connect: connection refused",
		"Exception (504) Reason: \"connection closed\"",
		"unexpected EOF",
		"write: broken pipe",
		"read tcp: use of closed network connection",
	}
	for _, msg := range dropped {
		if !isConnectionError(errors.New(msg)) {
			t.Errorf("%q should count as a dropped connection", msg)
		}
	}
	for _, err := range []error{nil, errors.New("mirror message without id"), ErrCircuitOpen} {
		if isConnectionError(err) {
			t.Errorf("%v should not count as a dropped connection", err)
		}
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	c := &Client{exchangeName: "roadrich", queueName: "mirror_expenses"}
	if c.isCircuitOpen() {
		t.Fatal("new client starts with a closed circuit")
	}

	for i := 1; i < maxFailures; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("circuit opened after %d failures, threshold is %d", maxFailures-1, maxFailures)
	}
	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("circuit should open at the failure threshold")
	}

	// still inside the open window
	if !c.isCircuitOpen() || atomic.LoadInt32(&c.state) != StateOpen {
		t.Fatal("circuit should stay open until the timeout passes")
	}

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if c.isCircuitOpen() {
		t.Fatal("circuit should let a probe through after the timeout")
	}
	if got := atomic.LoadInt32(&c.state); got != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", got)
	}

	c.recordSuccess()
	if atomic.LoadInt32(&c.state) != StateClosed || atomic.LoadInt64(&c.failureCount) != 0 {
		t.Fatal("a success should close the circuit and clear the failure count")
	}
}

func TestPublishFailsFast(t *testing.T) {
	c := &Client{exchangeName: "roadrich", queueName: "mirror_expenses"}
	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()

	err := c.PublishExpenseSync(context.Background(), "exp-123", 4)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open circuit: err = %v, want ErrCircuitOpen", err)
	}
	if !strings.Contains(err.Error(), "exp-123") {
		t.Errorf("error should name the expense: %v", err)
	}

	c.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.PublishExpenseDelete(ctx, "exp-123"); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context: err = %v", err)
	}
	if atomic.LoadInt64(&c.failureCount) != 0 {
		t.Error("a cancelled publish is not a broker failure")
	}
}

func TestPublishWithoutConnectionCountsFailure(t *testing.T) {
	client := &Client{exchangeName: "roadrich", queueName: "mirror_expenses"}

	for i := 0; i < maxFailures; i++ {
		if err := client.PublishExpenseDelete(context.Background(), "exp-1"); err == nil {
			t.Fatal("publish without a channel should fail")
		}
	}
	if !client.isCircuitOpen() {
		t.Fatal("repeated failures should open the circuit")
	}
	if client.Healthy() {
		t.Fatal("client without a channel is not healthy")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close() on an unconnected client: %v", err)
	}
}

func TestNewUpsertMessage(t *testing.T) {
	msg := NewUpsertMessage("exp-1", 2)

	if msg.Type != MessageUpsert || msg.ID != "exp-1" || msg.Version != 2 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestMirrorMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &MirrorMessage{Type: MessageDelete, ID: "exp-9", Timestamp: timestamp}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := MirrorMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("MirrorMessageFromJSON() error = %v", err)
	}
	if parsed.Type != MessageDelete || parsed.ID != "exp-9" || !parsed.Timestamp.Equal(timestamp) {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestMirrorMessageFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"wrong id type", `{"id": 12, "version": 1}`},
		{"missing id", `{"type": "expense.upsert"}`},
		{"unknown type", `{"type": "expense.archive", "id": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MirrorMessageFromJSON([]byte(tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	msg, err := MirrorMessageFromJSON([]byte(`{"id": "legacy", "version": 3}`))
	if err != nil || msg.Type != MessageUpsert {
		t.Fatalf("untyped message should default to upsert, got %+v, %v", msg, err)
	}
}
