package stream

import "time"

// dialBackoff returns base * 2^(failures-1), capped at max. It only applies
// to failed dials; a dropped connection reconnects after Config.ReconnectDelay.
func dialBackoff(failures int, base, max time.Duration) time.Duration {
	if failures <= 1 {
		return base
	}
	// 2^30 * base is far beyond any sane cap
	if failures > 31 {
		return max
	}
	backoff := base * time.Duration(1<<(failures-1))
	if backoff > max || backoff <= 0 {
		return max
	}
	return backoff
}
