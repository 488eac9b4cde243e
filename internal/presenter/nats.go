package presenter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds connection settings for the command fan-out feed.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "overlay.commands",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher mirrors every presentation command onto a NATS subject
// (`<prefix>.<op>`) so additional overlay heads can follow the same feed
// without holding a websocket to the control daemon.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
}

func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, config: config}, nil
}

func (p *NATSPublisher) Render(cmd Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		log.Error().Err(err).Str("op", string(cmd.Op)).Msg("failed to marshal command for NATS")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, cmd.Op)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish command")
	}
}

func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("NATS drain failed")
	}
}
