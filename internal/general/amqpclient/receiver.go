package amqpclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/go-amqp"

	"denm-gateway/internal/general/logger"
)

// ErrReceiverClosed is returned by Receive when the receiver shuts down with
// an empty buffer. During shutdown it is the expected exit signal, not a
// fault.
var ErrReceiverClosed = errors.New("amqp receiver closed")

// creditWindow is how many unsettled deliveries the broker may have in
// flight; each consumed message grants one credit back.
const creditWindow = 100

// receiveLink is the part of *amqp.Receiver the adapter needs; tests
// substitute a fake.
type receiveLink interface {
	Receive(ctx context.Context, opts *amqp.ReceiveOptions) (*amqp.Message, error)
	AcceptMessage(ctx context.Context, msg *amqp.Message) error
	IssueCredit(credit uint32) error
	Close(ctx context.Context) error
}

// Receiver pumps deliveries from the link into a bounded buffer so
// application goroutines get a blocking Receive. Credit is managed manually:
// the window is granted at start and topped up one credit per consumed
// message, keeping it saturated.
type Receiver struct {
	link receiveLink
	log  *logger.Logger

	buf    chan *amqp.Message
	cancel context.CancelFunc
	done   chan struct{}
}

func newReceiver(link receiveLink, log *logger.Logger) (*Receiver, error) {
	if err := link.IssueCredit(creditWindow); err != nil {
		return nil, fmt.Errorf("grant initial credit: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Receiver{
		link:   link,
		log:    log,
		buf:    make(chan *amqp.Message, creditWindow),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.pump(ctx)
	return r, nil
}

// pump moves deliveries into the buffer and accepts them. Runs until Close
// cancels its context or the link fails.
func (r *Receiver) pump(ctx context.Context) {
	defer close(r.buf)
	defer close(r.done)

	for {
		msg, err := r.link.Receive(ctx, nil)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Error(ctx, "amqp_receive_failed", "receiver link failed", err, nil)
			}
			return
		}
		if err := r.link.AcceptMessage(ctx, msg); err != nil {
			if ctx.Err() == nil {
				r.log.Error(ctx, "amqp_accept_failed", "could not settle delivery", err, nil)
			}
			return
		}

		select {
		case r.buf <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Receive blocks until a delivery is buffered, the context is done or the
// receiver closes. Consuming a message grants one credit back to the link.
func (r *Receiver) Receive(ctx context.Context) (*amqp.Message, error) {
	select {
	case msg, ok := <-r.buf:
		if !ok {
			return nil, ErrReceiverClosed
		}
		if err := r.link.IssueCredit(1); err != nil {
			r.log.Warn(ctx, "amqp_credit_failed", "could not refresh credit", map[string]any{
				"error": err.Error(),
			})
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the pump and detaches the link. Blocked Receive calls unblock
// with ErrReceiverClosed once the buffer drains.
func (r *Receiver) Close(ctx context.Context) error {
	r.cancel()
	<-r.done
	if err := r.link.Close(ctx); err != nil {
		return fmt.Errorf("close receiver link: %w", err)
	}
	r.log.Info(ctx, "amqp_receiver_closed", "receiver link closed", nil)
	return nil
}
