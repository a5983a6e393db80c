package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"order-events/domain"
)

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// QueuePublisher sends every event of a batch as one Azure Storage queue message.
type QueuePublisher struct {
	name  string
	queue messageQueue
}

// NewQueuePublisher connects to the named queue, creating it when missing.
func NewQueuePublisher(ctx context.Context, connStr, queueName string) (*QueuePublisher, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 30,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	if _, err := q.Create(ctx, nil); err != nil && !isQueueAlreadyExists(err) {
		return nil, err
	}
	return &QueuePublisher{name: queueName, queue: q}, nil
}

func isQueueAlreadyExists(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists"
}

func (p *QueuePublisher) Name() string {
	return "queue:" + p.name
}

// Publish enqueues the events in order, stopping at the first failure.
func (p *QueuePublisher) Publish(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		data, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		if _, err := p.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *QueuePublisher) Close() error {
	return nil
}
