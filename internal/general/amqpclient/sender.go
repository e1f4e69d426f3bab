package amqpclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/go-amqp"

	"denm-gateway/internal/general/logger"
)

// ErrSenderClosed is returned by Send once Close has been called.
var ErrSenderClosed = errors.New("amqp sender closed")

// sendLink is the part of *amqp.Sender the adapter needs; tests substitute
// a fake.
type sendLink interface {
	Send(ctx context.Context, msg *amqp.Message, opts *amqp.SendOptions) error
	Close(ctx context.Context) error
}

type sendJob struct {
	ctx  context.Context
	msg  *amqp.Message
	done chan error
}

// Sender serializes all link operations through one goroutine so callers on
// any goroutine get a blocking Send with FIFO delivery order. Credit and
// flow control stay inside the link; a Send simply blocks until the link
// settles the transfer.
type Sender struct {
	link sendLink
	log  *logger.Logger

	jobs      chan sendJob
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSender(link sendLink, log *logger.Logger) *Sender {
	s := &Sender{
		link:   link,
		log:    log,
		jobs:   make(chan sendJob),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// run owns the link. Draining jobs from a single channel preserves submit
// order across concurrent callers.
func (s *Sender) run() {
	defer close(s.done)
	for {
		select {
		case <-s.closed:
			// fail anything that raced with Close
			for {
				select {
				case job := <-s.jobs:
					job.done <- ErrSenderClosed
				default:
					return
				}
			}
		case job := <-s.jobs:
			job.done <- s.link.Send(job.ctx, job.msg, nil)
		}
	}
}

// Send blocks until the broker settles the message, the context is done or
// the sender closes.
func (s *Sender) Send(ctx context.Context, msg *amqp.Message) error {
	job := sendJob{ctx: ctx, msg: msg, done: make(chan error, 1)}

	select {
	case <-s.closed:
		return ErrSenderClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.jobs <- job:
	}

	select {
	case err := <-job.done:
		if err != nil && !errors.Is(err, ErrSenderClosed) {
			return fmt.Errorf("send: %w", err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the work loop and detaches the link. Idempotent; repeat calls
// return nil.
func (s *Sender) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		<-s.done
		if cerr := s.link.Close(ctx); cerr != nil {
			err = fmt.Errorf("close sender link: %w", cerr)
			return
		}
		s.log.Info(ctx, "amqp_sender_closed", "sender link closed", nil)
	})
	return err
}
