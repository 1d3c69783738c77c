// Package controllers provides the screen controllers of postbook.
//
// Every controller talks to a repository.ItemsRepository only. List and
// Details derive their state from live streams and keep them running only
// while observed; Entry and Edit hold a plain form state.
package controllers

import (
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/otel"
)

// Config configures controllers.
type Config struct {
	KeepAlive time.Duration // Upstream lifetime after the last observer leaves (default: 5s)
	Events    *otel.Logger  // Optional structured event sink
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{KeepAlive: controller.DefaultKeepAlive}
}

func (c Config) keepAlive() time.Duration {
	if c.KeepAlive < 0 {
		return controller.DefaultKeepAlive
	}
	return c.KeepAlive
}
