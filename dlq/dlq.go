// Package dlq relays failed invocations to a dead-letter queue so they can
// be inspected or replayed later.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"
)

type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Record describes one failed invocation. Event carries the original
// invocation payload so the record can be redriven later; HTTP fields are
// set only for failures that had a synchronous HTTP reply.
type Record struct {
	FunctionKey  string          `json:"functionKey"`
	RequestID    string          `json:"requestId"`
	Method       string          `json:"method,omitempty"`
	Path         string          `json:"path,omitempty"`
	StatusCode   int             `json:"statusCode,omitempty"`
	ErrorMessage string          `json:"errorMessage"`
	ErrorType    string          `json:"errorType"`
	Event        json.RawMessage `json:"event,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

type Relay struct {
	queueURL string
	client   SQSClient
}

// NewRelay returns a relay targeting queueURL. A nil client builds one from
// the ambient AWS configuration and panics when that configuration cannot
// be assembled.
func NewRelay(queueURL string, client SQSClient) *Relay {
	if client == nil {
		client = defaultClient()
	}
	return &Relay{queueURL: queueURL, client: client}
}

func defaultClient() SQSClient {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		panic(fmt.Errorf("dlq: load aws config: %w", err))
	}
	return sqs.NewFromConfig(cfg)
}

// Send writes the record to the queue.
func (r *Relay) Send(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dlq: marshal record: %w", err)
	}

	_, err = r.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(b)),
	})
	if err != nil {
		return fmt.Errorf("dlq: send %s: %w", rec.RequestID, err)
	}
	return nil
}

// SendAsync writes the record on a separate goroutine. Delivery is best
// effort; a failure is logged and otherwise dropped.
func (r *Relay) SendAsync(rec Record) {
	go func() {
		if err := r.Send(context.Background(), rec); err != nil {
			logrus.Warn(err)
		}
	}()
}
