package dlq

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"
)

// InvokeFunc re-executes one dead-lettered invocation. A nil return deletes
// the record from the queue; an error leaves it for a later attempt.
type InvokeFunc func(ctx context.Context, functionKey string, event any) error

// Redriver drains dead-letter records back into a function backend. Records
// that replay cleanly are deleted; records that fail again stay on the queue
// and reappear after the visibility timeout. Records that cannot be decoded
// are deleted with a warning so they do not poison the loop.
type Redriver struct {
	queueURL string
	client   SQSClient
	invoke   InvokeFunc

	batchSize int32
	waitTime  int32
	idleDelay time.Duration

	running atomic.Int32
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// RedriveOption adjusts the polling behavior of a Redriver.
type RedriveOption func(*Redriver)

// WithBatchSize caps how many records one poll receives (1..10).
func WithBatchSize(n int32) RedriveOption {
	return func(r *Redriver) {
		r.batchSize = n
	}
}

// WithWaitTime sets the long-poll duration in seconds.
func WithWaitTime(seconds int32) RedriveOption {
	return func(r *Redriver) {
		r.waitTime = seconds
	}
}

// WithIdleDelay sets the pause after an empty or failed poll.
func WithIdleDelay(d time.Duration) RedriveOption {
	return func(r *Redriver) {
		r.idleDelay = d
	}
}

// NewRedriver returns a redriver reading queueURL. A nil client builds one
// from the ambient AWS configuration, the same way NewRelay does.
func NewRedriver(queueURL string, client SQSClient, invoke InvokeFunc, opts ...RedriveOption) *Redriver {
	if client == nil {
		client = defaultClient()
	}

	r := &Redriver{
		queueURL:  queueURL,
		client:    client,
		invoke:    invoke,
		batchSize: 10,
		waitTime:  5,
		idleDelay: time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RedriveOnce receives one batch and replays it, reporting how many records
// replayed cleanly. An empty receive returns (0, nil).
func (r *Redriver) RedriveOnce(ctx context.Context) (int, error) {
	output, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &r.queueURL,
		MaxNumberOfMessages: r.batchSize,
		WaitTimeSeconds:     r.waitTime,
	})
	if err != nil {
		return 0, err
	}

	redriven := 0
	for _, msg := range output.Messages {
		if msg.Body == nil {
			r.delete(ctx, msg.ReceiptHandle)
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(*msg.Body), &rec); err != nil {
			logrus.Warnf("dlq: drop undecodable record: %v", err)
			r.delete(ctx, msg.ReceiptHandle)
			continue
		}

		var event any
		if len(rec.Event) > 0 {
			if err := json.Unmarshal(rec.Event, &event); err != nil {
				logrus.Warnf("dlq: drop record %s with undecodable event: %v", rec.RequestID, err)
				r.delete(ctx, msg.ReceiptHandle)
				continue
			}
		}

		if err := r.invoke(ctx, rec.FunctionKey, event); err != nil {
			logrus.Warnf("dlq: redrive %s (function: %s): %v", rec.RequestID, rec.FunctionKey, err)
			continue
		}

		r.delete(ctx, msg.ReceiptHandle)
		redriven++
	}

	return redriven, nil
}

// Start begins polling in the background until Stop is called.
func (r *Redriver) Start() {
	if !r.running.CompareAndSwap(0, 1) {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()

	logrus.Infof("dlq: redriving %s", r.queueURL)
}

func (r *Redriver) loop() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, err := r.RedriveOnce(context.Background())
		if err != nil {
			logrus.Warnf("dlq: receive: %v", err)
		}
		if n > 0 {
			continue
		}

		select {
		case <-r.done:
			return
		case <-time.After(r.idleDelay):
		}
	}
}

// Stop halts polling and waits for the in-flight batch to finish.
func (r *Redriver) Stop() {
	r.once.Do(func() {
		r.running.Store(0)
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Redriver) delete(ctx context.Context, receiptHandle *string) {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &r.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		logrus.Warnf("dlq: delete record: %v", err)
	}
}
