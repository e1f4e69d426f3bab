package amqpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/go-amqp"

	"denm-gateway/internal/general/logger"
)

// Options describe one broker connection.
type Options struct {
	// URL is the broker address, e.g. amqp://localhost:5672 or amqps://host:5671.
	URL string
	// Username names the client; it becomes the container id prefix, the
	// link name prefix and the AMQP user id on outgoing messages.
	Username string
	// Password selects SASL PLAIN when non-empty.
	Password string
	// CertDir, when non-empty, enables TLS with SASL EXTERNAL using
	// <Username>.crt / <Username>.key and the broker CA from truststore.pem.
	CertDir string
}

// Client owns one AMQP connection and one session. Links are created from it
// and wrapped in the blocking Sender / Receiver adapters.
type Client struct {
	conn    *amqp.Conn
	session *amqp.Session
	user    string
	log     *logger.Logger
}

// Dial connects and opens a session. SASL mechanism selection follows the
// credentials given: EXTERNAL with a client certificate, PLAIN with a
// password, ANONYMOUS otherwise.
func Dial(ctx context.Context, opts Options, log *logger.Logger) (*Client, error) {
	connOpts := &amqp.ConnOptions{
		ContainerID: opts.Username + "-container",
	}

	switch {
	case opts.CertDir != "":
		tlsCfg, err := tlsConfig(opts.CertDir, opts.Username)
		if err != nil {
			return nil, err
		}
		connOpts.TLSConfig = tlsCfg
		connOpts.SASLType = amqp.SASLTypeExternal("")
	case opts.Password != "":
		connOpts.SASLType = amqp.SASLTypePlain(opts.Username, opts.Password)
	default:
		connOpts.SASLType = amqp.SASLTypeAnonymous()
	}

	conn, err := amqp.Dial(ctx, opts.URL, connOpts)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	session, err := conn.NewSession(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	log.Info(ctx, "amqp_connected", "connected to broker", map[string]any{
		"url": opts.URL, "user": opts.Username,
	})
	return &Client{conn: conn, session: session, user: opts.Username, log: log}, nil
}

// NewSender opens a sender link to target and starts its work loop. The link
// name follows the "<username>-az-sender" convention the interchange expects.
func (c *Client) NewSender(ctx context.Context, target string) (*Sender, error) {
	link, err := c.session.NewSender(ctx, target, &amqp.SenderOptions{
		Name: c.user + "-az-sender",
	})
	if err != nil {
		return nil, fmt.Errorf("open sender link %q: %w", target, err)
	}
	return newSender(link, c.log), nil
}

// NewReceiver opens a receiver link from source with manual credit and starts
// its pump. The full credit window is granted up front.
func (c *Client) NewReceiver(ctx context.Context, source string) (*Receiver, error) {
	link, err := c.session.NewReceiver(ctx, source, &amqp.ReceiverOptions{
		Name:   c.user + "-az-receiver",
		Credit: -1,
	})
	if err != nil {
		return nil, fmt.Errorf("open receiver link %q: %w", source, err)
	}
	return newReceiver(link, c.log)
}

// Close tears down the session and connection. Adapters built from this
// client must be closed first.
func (c *Client) Close(ctx context.Context) error {
	if err := c.session.Close(ctx); err != nil {
		c.conn.Close()
		return fmt.Errorf("close session: %w", err)
	}
	return c.conn.Close()
}

// tlsConfig loads the client keypair and the broker CA from dir.
func tlsConfig(dir, user string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(dir, user+".crt"),
		filepath.Join(dir, user+".key"),
	)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(filepath.Join(dir, "truststore.pem"))
	if err != nil {
		return nil, fmt.Errorf("load truststore: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("truststore.pem contains no usable certificates")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
