package stream

import "time"

const DefaultURL = "wss://events.near.stream/ws"

// Config configures the stream client.
type Config struct {
	URL    string
	Secret string
	// FetchPastEvents is the replay window requested in every handshake.
	FetchPastEvents int
	// ReconnectDelay is the wait after a connection closes. Kept sub-second;
	// the replay window covers the gap.
	ReconnectDelay time.Duration
	// HiddenPoll is how often visibility is re-checked while hidden.
	HiddenPoll time.Duration
	// DialBackoff and MaxDialBackoff bound the wait after consecutive failed dials.
	DialBackoff    time.Duration
	MaxDialBackoff time.Duration

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		Secret:           "brrr",
		FetchPastEvents:  500,
		ReconnectDelay:   time.Millisecond,
		HiddenPoll:       time.Second,
		DialBackoff:      500 * time.Millisecond,
		MaxDialBackoff:   30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.URL == "" {
		c.URL = def.URL
	}
	if c.FetchPastEvents < 0 {
		c.FetchPastEvents = 0
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.HiddenPoll <= 0 {
		c.HiddenPoll = def.HiddenPoll
	}
	if c.DialBackoff <= 0 {
		c.DialBackoff = def.DialBackoff
	}
	if c.MaxDialBackoff < c.DialBackoff {
		c.MaxDialBackoff = c.DialBackoff
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
