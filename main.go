package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	gatewayservice "denm-gateway/cmd/gateway"
	"denm-gateway/internal/general/config"
)

func main() {
	fs := flag.NewFlagSet("denm-gateway", flag.ContinueOnError)

	cfg := &config.Config{}
	fs.StringVar(&cfg.AMQP.URL, "amqp-url", config.EnvString("AMQP_URL", "amqp://localhost:5672"), "AMQP 1.0 broker URL")
	fs.StringVar(&cfg.AMQP.SendAddress, "amqp-send", config.EnvString("AMQP_SEND", "examples"), "sender target address")
	fs.StringVar(&cfg.AMQP.ReceiveAddress, "amqp-receive", config.EnvString("AMQP_RECEIVE", "examples"), "receiver source address")
	fs.StringVar(&cfg.AMQP.Username, "username", config.EnvString("USERNAME", "denm-gateway"), "client identity; also names the TLS cert files")
	fs.StringVar(&cfg.AMQP.Password, "amqp-password", config.EnvString("AMQP_PASSWORD", ""), "password for SASL PLAIN")
	fs.StringVar(&cfg.AMQP.ProtocolVersion, "protocol-version", config.EnvString("PROTOCOL_VERSION", "DENM:1.2.2"), "envelope protocolVersion property")
	fs.StringVar(&cfg.HTTP.Host, "http-host", config.EnvString("HTTP_HOST", "0.0.0.0"), "HTTP listen host")
	fs.IntVar(&cfg.HTTP.Port, "http-port", config.EnvInt("HTTP_PORT", 8080), "HTTP listen port")
	fs.IntVar(&cfg.WebSocket.Port, "ws-port", config.EnvInt("WS_PORT", 0), "WebSocket port (defaults to the HTTP port)")
	fs.StringVar(&cfg.CertDir, "cert-dir", config.EnvString("CERT_DIR", ""), "directory with <username>.crt/.key and truststore.pem")
	fs.StringVar(&cfg.LogLevel, "log-level", config.EnvString("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	fs.BoolVar(&cfg.Sender, "sender", config.EnvBool("SENDER", true), "enable the outbound (sender) half")
	fs.BoolVar(&cfg.Receiver, "receiver", config.EnvBool("RECEIVER", true), "enable the inbound (receiver) half")

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "denm-gateway bridges DENM road-safety messages between HTTP/WebSocket clients and an AMQP 1.0 C-ITS interchange.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Usage: denm-gateway [flags]")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := cfg.Finalize(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fs.Usage()
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gatewayservice.Run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
