package collection

import (
	"context"
	"fmt"

	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/transport"
)

// Publisher hands a worker's timing log to the coordinator at the end of a
// run. Pushes are not retried.
type Publisher struct {
	transport transport.Transport
}

func NewPublisher(t transport.Transport) *Publisher {
	return &Publisher{transport: t}
}

func (p *Publisher) Publish(ctx context.Context, log recorder.TimingLog) error {
	payload, err := EncodePayload(log)
	if err != nil {
		return err
	}
	if err := p.transport.Push(ctx, payload); err != nil {
		return fmt.Errorf("Publisher.Publish() could not push %d tags: %w", len(log), err)
	}
	return nil
}
