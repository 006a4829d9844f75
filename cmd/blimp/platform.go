package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/srg/blimp/pkg/config"
	"github.com/srg/blimp/pkg/session"
)

// openSession opens the default Bluetooth device and starts a session on it.
func openSession(cfg *config.Config, logger *logrus.Logger) *session.Session {
	platform := goble.NewPlatform(logger, cfg.EventBuffer)
	return session.New(platform, logger)
}

// interruptContext returns a context cancelled on Ctrl+C or SIGTERM, or after
// timeout when it is positive. A notice is written to w when the signal arrives.
func interruptContext(parent context.Context, w io.Writer, timeout time.Duration) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(w, "\nCtrl+C pressed, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
