package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/go-amqp"

	"denm-gateway/internal/denm"
	"denm-gateway/internal/general/amqpclient"
	"denm-gateway/internal/general/bus"
	"denm-gateway/internal/general/config"
	"denm-gateway/internal/general/logger"
	"denm-gateway/internal/general/metrics"
)

const (
	// linkOpenAttempts retries a failing link open before giving up.
	linkOpenAttempts = 5
	linkOpenDelay    = 3 * time.Second

	// dial backoff doubles from the initial delay up to the cap.
	dialAttempts     = 5
	dialInitialDelay = time.Second
	dialMaxDelay     = 10 * time.Second

	// receiveRetryDelay paces the inbound loop after a transient failure.
	receiveRetryDelay = 100 * time.Millisecond
)

// messageSender and messageReceiver are satisfied by the amqpclient adapters;
// tests substitute fakes.
type messageSender interface {
	Send(ctx context.Context, msg *amqp.Message) error
	Close(ctx context.Context) error
}

type messageReceiver interface {
	Receive(ctx context.Context) (*amqp.Message, error)
	Close(ctx context.Context) error
}

// Interchange bridges the internal event bus and the interchange broker: bus
// events on denm.outgoing become enveloped AMQP messages, inbound AMQP
// deliveries become bus events on denm.incoming.
type Interchange struct {
	cfg *config.Config
	bus *bus.Bus
	met *metrics.Metrics
	log *logger.Logger

	client   *amqpclient.Client
	sender   messageSender
	receiver messageReceiver

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInterchange wires the service to the bus and metrics. Start opens the
// broker links.
func NewInterchange(cfg *config.Config, b *bus.Bus, met *metrics.Metrics, log *logger.Logger) *Interchange {
	return &Interchange{cfg: cfg, bus: b, met: met, log: log}
}

// Start connects to the broker, opens the configured links and subscribes to
// the outgoing topic. The receiver loop runs until Stop.
func (ic *Interchange) Start(ctx context.Context) error {
	client, err := ic.dial(ctx)
	if err != nil {
		return err
	}
	ic.client = client

	if ic.cfg.Sender {
		sender, err := ic.openSender(ctx)
		if err != nil {
			client.Close(ctx)
			return err
		}
		ic.sender = sender
		ic.bus.Subscribe(bus.TopicDenmOutgoing, ic.handleOutgoing)
	}

	if ic.cfg.Receiver {
		receiver, err := client.NewReceiver(ctx, ic.cfg.AMQP.ReceiveAddress)
		if err != nil {
			if ic.sender != nil {
				ic.sender.Close(ctx)
			}
			client.Close(ctx)
			return fmt.Errorf("open receiver: %w", err)
		}
		ic.receiver = receiver

		loopCtx, cancel := context.WithCancel(context.Background())
		ic.cancel = cancel
		ic.wg.Add(1)
		go ic.receiveLoop(loopCtx)
	}

	ic.log.Info(ctx, "interchange_started", "interchange links open", map[string]any{
		"sender": ic.cfg.Sender, "receiver": ic.cfg.Receiver,
	})
	return nil
}

// dial connects with exponential backoff, counting re-attempts.
func (ic *Interchange) dial(ctx context.Context) (*amqpclient.Client, error) {
	opts := amqpclient.Options{
		URL:      ic.cfg.AMQP.URL,
		Username: ic.cfg.AMQP.Username,
		Password: ic.cfg.AMQP.Password,
		CertDir:  ic.cfg.CertDir,
	}

	delay := dialInitialDelay
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		client, err := amqpclient.Dial(ctx, opts, ic.log)
		if err == nil {
			return client, nil
		}
		lastErr = err
		ic.log.Warn(ctx, "amqp_dial_retry", "broker dial failed", map[string]any{
			"attempt": attempt, "error": err.Error(),
		})
		if attempt == dialAttempts {
			break
		}
		ic.met.AMQPReconnects.Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > dialMaxDelay {
			delay = dialMaxDelay
		}
	}
	return nil, fmt.Errorf("dial broker: %w", lastErr)
}

func (ic *Interchange) openSender(ctx context.Context) (*amqpclient.Sender, error) {
	var lastErr error
	for attempt := 1; attempt <= linkOpenAttempts; attempt++ {
		sender, err := ic.client.NewSender(ctx, ic.cfg.AMQP.SendAddress)
		if err == nil {
			return sender, nil
		}
		lastErr = err
		ic.log.Warn(ctx, "amqp_sender_retry", "sender link open failed", map[string]any{
			"attempt": attempt, "error": err.Error(),
		})
		if attempt == linkOpenAttempts {
			break
		}
		select {
		case <-time.After(linkOpenDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("open sender: %w", lastErr)
}

// handleOutgoing is the denm.outgoing subscriber: parse the envelope, encode
// the DENM and submit. Runs on the publisher's goroutine; failures are
// logged and counted, never fatal.
func (ic *Interchange) handleOutgoing(payload json.RawMessage) {
	ctx := context.Background()

	env, err := ParseEnvelope(payload)
	if err != nil {
		ic.met.DenmDropped.WithLabelValues("envelope").Inc()
		ic.log.Error(ctx, "envelope_rejected", "invalid outgoing envelope", err, nil)
		return
	}

	msg, err := buildMessage(env, ic.cfg.AMQP.ProtocolVersion, ic.cfg.AMQP.Username, ic.cfg.AMQP.SendAddress)
	if err != nil {
		ic.met.DenmDropped.WithLabelValues("encode").Inc()
		ic.log.Error(ctx, "denm_encode_failed", "could not encode outgoing DENM", err, nil)
		return
	}

	if err := ic.sender.Send(ctx, msg); err != nil {
		ic.met.DenmDropped.WithLabelValues("send").Inc()
		ic.log.Error(ctx, "denm_publish_failed", "broker rejected DENM", err, nil)
		return
	}

	ic.met.DenmPublished.Inc()
	ic.log.Info(ctx, "denm_published", "DENM published to interchange", map[string]any{
		"publisherId":   *env.PublisherID,
		"publicationId": msg.ApplicationProperties["publicationId"],
	})
}

// receiveLoop pumps inbound deliveries onto the bus until shutdown. A closed
// receiver is the graceful exit; other failures pause briefly and retry.
func (ic *Interchange) receiveLoop(ctx context.Context) {
	defer ic.wg.Done()

	for {
		msg, err := ic.receiver.Receive(ctx)
		if err != nil {
			if errors.Is(err, amqpclient.ErrReceiverClosed) || ctx.Err() != nil {
				return
			}
			ic.log.Error(ctx, "denm_receive_failed", "inbound receive failed", err, nil)
			select {
			case <-time.After(receiveRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		ic.handleInbound(ctx, msg)
	}
}

func (ic *Interchange) handleInbound(ctx context.Context, msg *amqp.Message) {
	body := msg.GetData()
	if len(body) == 0 {
		ic.met.DenmDropped.WithLabelValues("body").Inc()
		ic.log.Warn(ctx, "denm_discarded", "inbound message without binary body", nil)
		return
	}

	m, err := denm.Decode(body)
	if err != nil {
		ic.met.DenmDropped.WithLabelValues("decode").Inc()
		ic.log.Error(ctx, "denm_decode_failed", "could not decode inbound DENM", err, nil)
		return
	}
	projection, err := denm.ToJSON(m)
	if err != nil {
		ic.met.DenmDropped.WithLabelValues("decode").Inc()
		ic.log.Error(ctx, "denm_project_failed", "could not project inbound DENM", err, nil)
		return
	}

	ic.bus.Publish(bus.TopicDenmIncoming, projection)
	ic.met.DenmReceived.Inc()
	ic.log.Debug(ctx, "denm_received", "DENM delivered to bus", map[string]any{
		"stationId": m.Header.StationID,
	})
}

// Stop closes the links and the connection. Safe to call after a failed
// Start only if Start returned nil.
func (ic *Interchange) Stop(ctx context.Context) error {
	var errs []error

	if ic.cancel != nil {
		ic.cancel()
	}
	if ic.receiver != nil {
		if err := ic.receiver.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	ic.wg.Wait()

	if ic.sender != nil {
		if err := ic.sender.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if ic.client != nil {
		if err := ic.client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	ic.log.Info(ctx, "interchange_stopped", "interchange links closed", nil)
	return errors.Join(errs...)
}
