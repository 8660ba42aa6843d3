// Package stream bridges NATS subjects onto the coordinate parser: raw
// text arrives on an input subject and normalized results, or typed
// parse errors, are published to an output subject. Messages carrying a
// reply subject are answered there instead, so the bridge doubles as a
// request/reply parse service.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"coordparse"
	"coordparse/coord"
)

// drainTimeout bounds the wait for in-flight messages on shutdown.
const drainTimeout = 10 * time.Second

// Config holds the bridge connection settings.
type Config struct {
	URL        string `yaml:"url"`
	InSubject  string `yaml:"in_subject"`
	OutSubject string `yaml:"out_subject"`
	Queue      string `yaml:"queue"`
	Order      string `yaml:"order"`
}

// DefaultConfig returns the default bridge settings.
func DefaultConfig() Config {
	return Config{
		URL:        nats.DefaultURL,
		InSubject:  "coordparse.raw",
		OutSubject: "coordparse.parsed",
		Queue:      "coordparse",
	}
}

// Output is the JSON payload published for every input message. Exactly
// one of Result and Error is set.
type Output struct {
	Input  string         `json:"input"`
	Result *ResultPayload `json:"result,omitempty"`
	Error  *ErrorPayload  `json:"error,omitempty"`
}

// ResultPayload is the wire form of a successful parse.
type ResultPayload struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Format     string  `json:"format"`
	SourceEPSG int     `json:"source_epsg"`
}

// ErrorPayload is the wire form of a parse failure.
type ErrorPayload struct {
	Kind   string `json:"kind"`
	Format string `json:"format,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Bridge subscribes to raw coordinate text and publishes parse results.
// Counters are updated from the subscription callback and read from the
// reporting loop, hence the atomics.
type Bridge struct {
	parser *coordparse.Parser
	cfg    Config
	order  coord.Order

	parsed atomic.Uint64
	failed atomic.Uint64
}

// NewBridge builds a Bridge around an existing parser. The configured
// order preference is validated here, not at message time.
func NewBridge(parser *coordparse.Parser, cfg Config) (*Bridge, error) {
	order, err := coord.ParseOrder(cfg.Order)
	if err != nil {
		return nil, err
	}
	if cfg.InSubject == "" || cfg.OutSubject == "" {
		return nil, fmt.Errorf("input and output subjects are required")
	}
	return &Bridge{parser: parser, cfg: cfg, order: order}, nil
}

// Run connects, subscribes, and blocks until ctx is cancelled, then
// drains the connection so in-flight messages still get answered.
func (b *Bridge) Run(ctx context.Context) error {
	closed := make(chan struct{})

	nc, err := nats.Connect(b.cfg.URL,
		nats.Name("coordstream"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", b.cfg.URL, err)
	}

	_, err = nc.QueueSubscribe(b.cfg.InSubject, b.cfg.Queue, func(msg *nats.Msg) {
		b.handle(nc, msg)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.cfg.InSubject, err)
	}

	log.Info().
		Str("url", b.cfg.URL).
		Str("in", b.cfg.InSubject).
		Str("out", b.cfg.OutSubject).
		Str("queue", b.cfg.Queue).
		Msg("Stream bridge running")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Uint64("parsed", b.parsed.Load()).
				Uint64("failed", b.failed.Load()).
				Msg("Draining stream bridge")
			if err := nc.Drain(); err != nil {
				nc.Close()
				return err
			}
			select {
			case <-closed:
			case <-time.After(drainTimeout):
				log.Warn().Msg("Drain timed out, closing connection")
				nc.Close()
			}
			return nil
		case <-ticker.C:
			log.Info().
				Uint64("parsed", b.parsed.Load()).
				Uint64("failed", b.failed.Load()).
				Msg("Stream bridge counters")
		}
	}
}

// handle answers one message: reply subject if present, the configured
// output subject otherwise.
func (b *Bridge) handle(nc *nats.Conn, msg *nats.Msg) {
	out := b.process(string(msg.Data))

	data, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal output")
		return
	}

	subject := b.cfg.OutSubject
	if msg.Reply != "" {
		subject = msg.Reply
	}
	if err := nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish result")
	}
}

// process parses one message body and shapes the output payload.
func (b *Bridge) process(text string) Output {
	text = strings.TrimSpace(text)
	out := Output{Input: text}

	res, err := b.parser.Parse(text, b.order)
	if err != nil {
		b.failed.Add(1)
		out.Error = errorPayload(err)
		return out
	}

	b.parsed.Add(1)
	out.Result = &ResultPayload{
		Lat:        res.Lat,
		Lon:        res.Lon,
		Format:     res.Format.String(),
		SourceEPSG: res.SourceEPSG,
	}
	return out
}

// Counts returns the number of successful and failed parses so far.
func (b *Bridge) Counts() (parsed, failed uint64) {
	return b.parsed.Load(), b.failed.Load()
}

func errorPayload(err error) *ErrorPayload {
	var pe *coord.ParseError
	if errors.As(err, &pe) {
		p := &ErrorPayload{Kind: pe.Kind.String(), Reason: pe.Reason}
		if pe.Format != coord.FormatUnknown {
			p.Format = pe.Format.String()
		}
		return p
	}
	return &ErrorPayload{Kind: "error", Reason: err.Error()}
}
