// Package diagnostics defines the structured log entry emitted by the
// client and server (spec.md §3, §6) and a default non-blocking sink.
//
// The sink's buffered-channel, drop-on-full delivery pattern is adapted
// from the teacher's internal/events.Bus: a bounded channel decouples the
// receive loop / callback workers (producers) from the (possibly slow)
// log destination, and a full buffer is a dropped entry plus a counter,
// never a blocked producer (spec.md §5: "the sink implementation must be
// thread-safe" and must never stall the receive path).
package diagnostics

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/raddaemon/raddaemon/internal/metrics"
)

// EntryKind classifies a LogEntry (spec.md §3).
type EntryKind string

const (
	KindAuthentication  EntryKind = "Authentication"
	KindUnknownNas      EntryKind = "UnknownNas"
	KindMalformedPacket EntryKind = "MalformedPacket"
	KindSecretMismatch  EntryKind = "SecretMismatch"
	KindInternal        EntryKind = "Internal"
)

// LogEntry is a single diagnostic record (spec.md §3).
type LogEntry struct {
	EntryKind    EntryKind
	Success      bool
	Realm        string
	Account      string
	NasEndpoint  net.Addr
	LocalAddress net.IP // server only: the local address that received the datagram, when known
	Timestamp    time.Time
	Detail       string
}

// Sink receives LogEntry values from client and server components. The
// formatting and transport are left to the implementation (spec.md §1:
// "Diagnostic logging transport ... is not" in scope); only the call
// shape is specified.
type Sink interface {
	OnLog(entry LogEntry)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(LogEntry)

func (f SinkFunc) OnLog(entry LogEntry) { f(entry) }

// NopSink discards every entry. Used when no sink is configured.
var NopSink Sink = SinkFunc(func(LogEntry) {})

// BufferedSink is the default Sink: it accepts entries onto a bounded
// channel and serializes them to a *slog.Logger from a single background
// goroutine, so concurrent callers (receive loop, callback workers,
// sweep task) never contend on the underlying writer.
type BufferedSink struct {
	ch     chan LogEntry
	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewBufferedSink creates a sink with the given channel capacity. A
// capacity of 0 uses a sensible default.
func NewBufferedSink(capacity int, logger *slog.Logger) *BufferedSink {
	if capacity <= 0 {
		capacity = 4096
	}
	return &BufferedSink{
		ch:     make(chan LogEntry, capacity),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins draining entries to the logger. Call once, in a goroutine
// or directly before Stop; Start blocks until Stop is called.
func (s *BufferedSink) Start() {
	s.wg.Add(1)
	defer s.wg.Done()
	for {
		select {
		case entry, ok := <-s.ch:
			if !ok {
				return
			}
			s.write(entry)
		case <-s.done:
			return
		}
	}
}

// Stop shuts down the sink. Safe to call once.
func (s *BufferedSink) Stop() {
	close(s.done)
	s.wg.Wait()
}

// OnLog implements Sink. Non-blocking: if the buffer is full, the entry
// is dropped and counted rather than stalling the caller.
func (s *BufferedSink) OnLog(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	select {
	case s.ch <- entry:
	default:
		metrics.LogEntriesDropped.Inc()
		s.logger.Warn("diagnostic log buffer full, dropping entry", "kind", string(entry.EntryKind))
	}
}

func (s *BufferedSink) write(entry LogEntry) {
	metrics.LogEntriesEmitted.WithLabelValues(string(entry.EntryKind)).Inc()

	var nas string
	if entry.NasEndpoint != nil {
		nas = entry.NasEndpoint.String()
	}

	level := slog.LevelInfo
	if !entry.Success {
		level = slog.LevelWarn
	}

	var local string
	if entry.LocalAddress != nil {
		local = entry.LocalAddress.String()
	}

	s.logger.Log(context.Background(), level, "radius event",
		"kind", string(entry.EntryKind),
		"success", entry.Success,
		"realm", entry.Realm,
		"account", entry.Account,
		"nas", nas,
		"local", local,
		"detail", entry.Detail,
	)
}
