package dlq_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aura-studio/offline/dlq"
)

type invokeRecorder struct {
	mu    sync.Mutex
	keys  []string
	event any
	fail  map[string]error
}

func (r *invokeRecorder) invoke(ctx context.Context, functionKey string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, functionKey)
	r.event = event
	if err, ok := r.fail[functionKey]; ok {
		return err
	}
	return nil
}

func (r *invokeRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func encodeRecord(t *testing.T, rec dlq.Record) string {
	t.Helper()
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRedriveOnceReplaysRecords(t *testing.T) {
	stub := &stubSQS{}
	stub.push(
		encodeRecord(t, dlq.Record{
			FunctionKey: "getUser",
			RequestID:   "req-1",
			Event:       json.RawMessage(`{"httpMethod":"GET","path":"/users/42"}`),
		}),
		encodeRecord(t, dlq.Record{
			FunctionKey: "listUsers",
			RequestID:   "req-2",
			Event:       json.RawMessage(`{"httpMethod":"GET","path":"/users"}`),
		}),
	)

	rec := &invokeRecorder{}
	redriver := dlq.NewRedriver("q", stub, rec.invoke)

	n, err := redriver.RedriveOnce(context.Background())
	if err != nil {
		t.Fatalf("RedriveOnce: %v", err)
	}
	if n != 2 {
		t.Errorf("redriven = %d, want 2", n)
	}
	if stub.remaining() != 0 {
		t.Errorf("remaining = %d, want 0", stub.remaining())
	}

	calls := rec.calls()
	if len(calls) != 2 || calls[0] != "getUser" || calls[1] != "listUsers" {
		t.Errorf("invoked = %v", calls)
	}
	event, ok := rec.event.(map[string]any)
	if !ok {
		t.Fatalf("event = %T, want decoded object", rec.event)
	}
	if event["httpMethod"] != "GET" || event["path"] != "/users" {
		t.Errorf("event = %v", event)
	}
}

func TestRedriveOnceLeavesFailedRecords(t *testing.T) {
	stub := &stubSQS{}
	stub.push(
		encodeRecord(t, dlq.Record{FunctionKey: "bad", RequestID: "req-1"}),
		encodeRecord(t, dlq.Record{FunctionKey: "good", RequestID: "req-2"}),
	)

	rec := &invokeRecorder{fail: map[string]error{"bad": errors.New("still broken")}}
	redriver := dlq.NewRedriver("q", stub, rec.invoke)

	n, err := redriver.RedriveOnce(context.Background())
	if err != nil {
		t.Fatalf("RedriveOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("redriven = %d, want 1", n)
	}
	if stub.remaining() != 1 {
		t.Errorf("remaining = %d, want the failed record kept", stub.remaining())
	}
	if calls := rec.calls(); len(calls) != 2 {
		t.Errorf("invoked = %v, want both records attempted", calls)
	}
}

func TestRedriveOnceDropsUndecodableRecords(t *testing.T) {
	stub := &stubSQS{}
	stub.push("not json {{{")

	rec := &invokeRecorder{}
	redriver := dlq.NewRedriver("q", stub, rec.invoke)

	n, err := redriver.RedriveOnce(context.Background())
	if err != nil {
		t.Fatalf("RedriveOnce: %v", err)
	}
	if n != 0 {
		t.Errorf("redriven = %d, want 0", n)
	}
	if stub.remaining() != 0 {
		t.Error("undecodable record should be deleted, not retried")
	}
	if calls := rec.calls(); len(calls) != 0 {
		t.Errorf("invoked = %v, want none", calls)
	}
}

func TestRedriveOnceReportsReceiveError(t *testing.T) {
	stub := &stubSQS{recvErr: errors.New("access denied")}
	redriver := dlq.NewRedriver("q", stub, (&invokeRecorder{}).invoke)

	if _, err := redriver.RedriveOnce(context.Background()); !errors.Is(err, stub.recvErr) {
		t.Errorf("RedriveOnce error = %v, want %v", err, stub.recvErr)
	}
}

func TestRedriverStartStop(t *testing.T) {
	stub := &stubSQS{}
	rec := &invokeRecorder{}
	redriver := dlq.NewRedriver("q", stub, rec.invoke,
		dlq.WithBatchSize(1),
		dlq.WithWaitTime(0),
		dlq.WithIdleDelay(10*time.Millisecond),
	)

	redriver.Start()
	redriver.Start() // second start is a no-op

	stub.push(encodeRecord(t, dlq.Record{FunctionKey: "getUser", RequestID: "req-1"}))

	deadline := time.Now().Add(2 * time.Second)
	for stub.remaining() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("record was not redriven before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	redriver.Stop()
	redriver.Stop() // stop is idempotent
}
