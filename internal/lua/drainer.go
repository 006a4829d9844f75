package lua

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/groutine"
)

// finalDrainTimeout bounds how long a stopping drainer keeps flushing.
const finalDrainTimeout = 100 * time.Millisecond

// OutputDrainer copies script output to stdout/stderr writers on a background
// goroutine until the output channel closes or it is cancelled.
type OutputDrainer struct {
	cancelOnce sync.Once
	stop       chan struct{}
	done       <-chan struct{}
}

// NewOutputDrainer starts draining records. Nil writers discard.
func NewOutputDrainer(ctx context.Context, records <-chan OutputRecord, logger *logrus.Logger, stdout, stderr io.Writer) *OutputDrainer {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	d := &OutputDrainer{stop: make(chan struct{})}
	write := func(rec OutputRecord) {
		w := stdout
		if rec.Source == "stderr" {
			w = stderr
		}
		if _, err := fmt.Fprint(w, rec.Content); err != nil {
			logger.WithFields(logrus.Fields{
				"source": rec.Source,
				"error":  err,
			}).Warn("Output drainer: write failed")
		}
	}

	d.done = groutine.Go(ctx, "lua-output-drainer", func(ctx context.Context) {
		defer logger.Debugf("%s: exiting", groutine.GetName(ctx))

		for {
			select {
			case rec, ok := <-records:
				if !ok {
					return
				}
				write(rec)
			case <-d.stop:
				drainFor(records, write, finalDrainTimeout)
				return
			case <-ctx.Done():
				drainFor(records, write, finalDrainTimeout)
				return
			}
		}
	})
	return d
}

// drainFor flushes queued records until the channel is empty or closed, or
// timeout passes. Reports whether everything queued was written.
func drainFor(records <-chan OutputRecord, write func(OutputRecord), timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return true
			}
			write(rec)
		case <-deadline:
			return false
		default:
			return true
		}
	}
}

// Cancel asks the drainer to flush what is queued and stop.
func (d *OutputDrainer) Cancel() {
	d.cancelOnce.Do(func() { close(d.stop) })
}

// Wait blocks until the drainer goroutine has exited.
func (d *OutputDrainer) Wait() {
	<-d.done
}
