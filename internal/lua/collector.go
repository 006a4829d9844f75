package lua

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

// MaxCollectorSize caps the collector buffer.
const MaxCollectorSize uint32 = 1024 * 1024

// CollectorMetrics counts records seen by a Collector.
type CollectorMetrics struct {
	Processed   int64
	Overwritten int64
}

// Collector buffers script output in an overlapped ring so it can be read back
// in one piece after the script finished. When full it overwrites the oldest record.
type Collector struct {
	records <-chan OutputRecord
	buffer  mpmc.RichOverlappedRingBuffer[OutputRecord]
	done    chan struct{}
	started atomic.Bool

	processed   atomic.Int64
	overwritten atomic.Int64
}

// NewCollector creates a collector reading from records.
func NewCollector(records <-chan OutputRecord, size uint32) (*Collector, error) {
	switch {
	case records == nil:
		return nil, errors.New("output channel cannot be nil")
	case size == 0:
		return nil, errors.New("buffer size must be > 0")
	case size > MaxCollectorSize:
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", size, MaxCollectorSize)
	}
	return &Collector{
		records: records,
		buffer:  mpmc.NewOverlappedRingBuffer[OutputRecord](size),
		done:    make(chan struct{}),
	}, nil
}

// Start begins collecting until the record channel closes.
func (c *Collector) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("collector already started")
	}
	go func() {
		defer close(c.done)
		for rec := range c.records {
			overwrites, err := c.buffer.EnqueueM(rec)
			if err != nil {
				continue
			}
			c.overwritten.Add(int64(overwrites))
			c.processed.Add(1)
		}
	}()
	return nil
}

// Wait blocks until the record channel closed and every record was buffered.
func (c *Collector) Wait() {
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) Metrics() CollectorMetrics {
	return CollectorMetrics{
		Processed:   c.processed.Load(),
		Overwritten: c.overwritten.Load(),
	}
}

// Records dequeues everything buffered so far, oldest first.
func (c *Collector) Records() ([]OutputRecord, error) {
	var out []OutputRecord
	for !c.buffer.IsEmpty() {
		rec, err := c.buffer.Dequeue()
		if err != nil {
			return out, fmt.Errorf("buffer dequeue: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Text dequeues buffered records from source ("" for all) and concatenates them.
func (c *Collector) Text(source string) (string, error) {
	records, err := c.Records()
	var sb strings.Builder
	for _, rec := range records {
		if source == "" || rec.Source == source {
			sb.WriteString(rec.Content)
		}
	}
	return sb.String(), err
}
