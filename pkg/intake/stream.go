package intake

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/umputun/notigate/pkg/domain"
)

//go:generate moq -out mocks/processor.go -pkg mocks -skip-ensure -fmt goimports . Processor

// Processor consumes intercepted messages, one at a time
type Processor interface {
	Process(ctx context.Context, msg domain.Message) error
}

// Stream is a websocket client attached to the push gateway's live message
// stream. Messages missed during a reconnect gap are gone; the gateway keeps
// no per-client cursor.
type Stream struct {
	cfg       StreamConfig
	processor Processor
	limiter   *rate.Limiter
}

// StreamConfig holds stream client settings
type StreamConfig struct {
	URL          string // ws:// or wss:// gateway base
	Token        string // client token
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	RateLimit    rate.Limit // messages per second into the pipeline, 0 for no limit
	RateBurst    int
}

// streamMessage is the gateway wire format
type streamMessage struct {
	ID       int64     `json:"id"`
	AppID    int64     `json:"appid"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority int       `json:"priority"`
	Date     time.Time `json:"date"`
}

// NewStream creates a stream intake feeding the processor
func NewStream(cfg StreamConfig, processor Processor) *Stream {
	if cfg.ReconnectMin == 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax == 0 {
		cfg.ReconnectMax = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Stream{cfg: cfg, processor: processor, limiter: limiter}
}

// Run connects and consumes the stream until ctx is canceled, reconnecting
// with exponential backoff on any drop. Backoff resets after a successful
// connect.
func (s *Stream) Run(ctx context.Context) error {
	delay := s.cfg.ReconnectMin

	for {
		conn, err := s.dial()
		if err == nil {
			delay = s.cfg.ReconnectMin // successful connect resets backoff
			err = s.consume(ctx, conn)
		}
		if err != nil && ctx.Err() == nil {
			lgr.Printf("[WARN] stream disconnected: %v, reconnect in %v", err, delay)
		}

		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] stream intake stopped")
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.ReconnectMax {
			delay = s.cfg.ReconnectMax
		}
	}
}

// consume holds one websocket session, reading messages in order
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close() //nolint:errcheck // nothing to do with close error

	lgr.Printf("[INFO] stream connected to %s", s.cfg.URL)

	// unblock the Receive below when ctx is canceled
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-sessionDone:
		}
	}()

	for {
		var wire streamMessage
		if err := websocket.JSON.Receive(conn, &wire); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		msg := domain.Message{
			ID:        wire.ID,
			Title:     wire.Title,
			Body:      Sanitize(wire.Message),
			Priority:  wire.Priority,
			App:       strconv.FormatInt(wire.AppID, 10),
			Source:    domain.SourceStream,
			Timestamp: wire.Date,
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}

		if err := s.processor.Process(ctx, msg); err != nil {
			lgr.Printf("[WARN] stream: process message %d failed: %v", msg.ID, err)
		}
	}
}

// dial opens the websocket with the token in the query, origin derived from
// the gateway URL
func (s *Stream) dial() (*websocket.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}

	origin := *u
	switch origin.Scheme {
	case "wss":
		origin.Scheme = "https"
	default:
		origin.Scheme = "http"
	}
	origin.Path, origin.RawQuery = "", ""

	target := fmt.Sprintf("%s/stream?token=%s", s.cfg.URL, url.QueryEscape(s.cfg.Token))
	return websocket.Dial(target, "", origin.String())
}
