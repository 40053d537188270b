package client

import (
	"time"

	"github.com/raddaemon/raddaemon/internal/metrics"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

// sweepLoop is the pool's single background task (spec.md §4.2
// "Retransmission and failover"). It owns attemptsRemaining, nextSendTime
// and serverIndex on every pendingRequest — the only goroutine that
// mutates them — so no lock is needed for those fields. Grounded on the
// teacher's lease manager gcLoop: a ticker walks every live entry once
// per tick and acts on the ones that are due.
func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.opts.BackgroundInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.sweepOnce(now)
		}
	}
}

func (p *Pool) sweepOnce(now time.Time) {
	for _, sock := range p.sockets {
		for _, pr := range sock.table.snapshot() {
			if now.Before(pr.nextSendTime) {
				continue
			}
			p.sweepOne(sock, pr, now)
		}
	}
}

func (p *Pool) sweepOne(sock *socket, pr *pendingRequest, now time.Time) {
	if pr.attemptsRemaining <= 0 {
		if !pr.markCompleted() {
			return // already delivered by a response that raced this tick
		}
		sock.table.release(pr.identifier)
		metrics.RequestsInFlight.Dec()
		metrics.IdentifiersInUse.Dec()
		metrics.AuthenticateResults.WithLabelValues(OutcomeTimeout.String()).Inc()
		pr.deliver(Result{Outcome: OutcomeTimeout, Err: radius.ErrTimeout})
		return
	}

	pr.attemptsRemaining--
	prevServer := pr.serverIndex
	pr.serverIndex = (pr.serverIndex + 1) % len(p.servers)
	if pr.serverIndex != prevServer {
		metrics.Failovers.Inc()
	}
	pr.nextSendTime = now.Add(p.opts.RetryInterval)

	metrics.Retransmits.Inc()
	if _, err := sock.conn.WriteToUDP(pr.datagram, p.servers[pr.serverIndex]); err != nil {
		p.opts.Logger.Warn("client: retransmit failed", "server", p.servers[pr.serverIndex], "error", err)
	}
}
