// Package client implements the RADIUS client transport pool (spec.md §4.2):
// N UDP sockets, each with an independent 256-slot identifier table,
// request scheduling, retransmission with server failover, and
// cancellation on Close. Grounded on the teacher's DHCP UDP server loop
// (internal/dhcp.Server) for the receive-loop/goroutine-lifecycle shape,
// and its lease manager gcLoop (internal/lease.Manager) for the
// background sweep ticker.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raddaemon/raddaemon/internal/diagnostics"
	"github.com/raddaemon/raddaemon/internal/metrics"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

// Options configures a Pool (spec.md §4.2 configuration surface).
type Options struct {
	Servers            []string // host:port, ordered, >= 1
	Secret             string
	LocalBinding       string // "" or "host:port"; port 0 = ephemeral
	PortCount          int    // N sockets, >= 1
	MaxTransmissions   int    // total send attempts including the first, >= 1
	RetryInterval      time.Duration
	BackgroundInterval time.Duration
	RealmFormat        radius.RealmFormat
	SocketBuffer       int

	Logger *slog.Logger
	Sink   diagnostics.Sink
}

func (o *Options) setDefaults() {
	if o.LocalBinding == "" {
		o.LocalBinding = ":0"
	}
	if o.PortCount <= 0 {
		o.PortCount = 1
	}
	if o.MaxTransmissions <= 0 {
		o.MaxTransmissions = 1
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 10 * time.Second
	}
	if o.BackgroundInterval <= 0 {
		o.BackgroundInterval = time.Second
	}
	if o.RealmFormat == "" {
		o.RealmFormat = radius.RealmFormatEmail
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Sink == nil {
		o.Sink = diagnostics.NopSink
	}
}

// Pool is the client-side multi-socket RADIUS transport (spec.md §4.2).
type Pool struct {
	opts    Options
	servers []*net.UDPAddr
	sockets []*socket

	nextServer atomic.Uint64 // round-robin starting point across new requests
	nextSocket atomic.Uint64 // round-robin socket selection

	stop    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// Open validates settings, binds PortCount sockets, and starts the receive
// loops and background sweep task.
func Open(opts Options) (*Pool, error) {
	opts.setDefaults()

	if len(opts.Servers) == 0 {
		return nil, radius.NewError(radius.KindInvalidInput, fmt.Errorf("client: at least one server is required"))
	}

	servers := make([]*net.UDPAddr, 0, len(opts.Servers))
	for _, s := range opts.Servers {
		addr, err := net.ResolveUDPAddr("udp4", s)
		if err != nil {
			return nil, radius.NewError(radius.KindInvalidInput, fmt.Errorf("client: resolving server %q: %w", s, err))
		}
		servers = append(servers, addr)
	}

	p := &Pool{
		opts:    opts,
		servers: servers,
		stop:    make(chan struct{}),
	}

	for i := 0; i < opts.PortCount; i++ {
		sock, err := newSocket(p, i)
		if err != nil {
			p.closeSockets()
			return nil, radius.NewError(radius.KindInvalidInput, fmt.Errorf("client: opening socket %d: %w", i, err))
		}
		p.sockets = append(p.sockets, sock)
	}

	for _, sock := range p.sockets {
		p.wg.Add(1)
		go func(s *socket) {
			defer p.wg.Done()
			s.receiveLoop()
		}(sock)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sweepLoop()
	}()

	return p, nil
}

// Authenticate performs one synchronous authentication attempt.
func (p *Pool) Authenticate(username, password string) Result {
	return p.AuthenticateAsync(username, password).Wait()
}

// AuthenticateAsync dispatches a request and returns a Future resolved
// once the request completes (spec.md §4.2, §6).
func (p *Pool) AuthenticateAsync(username, password string) Future {
	ch := make(chan Result, 1)

	realm, account := radius.ParseRealm(username, p.opts.RealmFormat)
	qualified := radius.FormatRealm(realm, account, p.opts.RealmFormat)

	sockIdx := int(p.nextSocket.Add(1)-1) % len(p.sockets)
	sock := p.sockets[sockIdx]

	reqAuth, err := radius.NewRequestAuthenticator()
	if err != nil {
		ch <- Result{Outcome: OutcomeMalformed, Err: err}
		close(ch)
		return Future{ch: ch}
	}

	id, ok := sock.table.reserve()
	if !ok {
		metrics.IdentifierExhausted.Inc()
		metrics.AuthenticateResults.WithLabelValues(OutcomeExhausted.String()).Inc()
		ch <- Result{Outcome: OutcomeExhausted, Err: radius.ErrExhausted}
		close(ch)
		return Future{ch: ch}
	}

	pr := &pendingRequest{
		identifier:           id,
		socketIndex:          sockIdx,
		requestAuthenticator: reqAuth,
		attemptsRemaining:    p.opts.MaxTransmissions - 1,
		realm:                realm,
		account:              account,
		completion:           ch,
	}

	pr.serverIndex = int(p.nextServer.Add(1)-1) % len(p.servers)

	local := sock.localAddr()
	pkt := &radius.Packet{
		Code:          radius.CodeAccessRequest,
		Identifier:    id,
		Authenticator: reqAuth,
	}
	pkt.Attributes.AddString(radius.AttrUserName, qualified)
	encPw, err := radius.EncryptPassword(password, p.opts.Secret, reqAuth)
	if err != nil {
		sock.table.release(id)
		metrics.AuthenticateResults.WithLabelValues(OutcomeMalformed.String()).Inc()
		ch <- Result{Outcome: OutcomeMalformed, Err: err}
		close(ch)
		return Future{ch: ch}
	}
	pkt.Attributes.Add(radius.AttrUserPassword, encPw)
	pkt.Attributes.AddIPv4(radius.AttrNasIPAddress, local.IP)
	pkt.Attributes.AddUint32(radius.AttrNasPort, uint32(local.Port))

	datagram, err := pkt.Encode()
	if err != nil {
		sock.table.release(id)
		metrics.AuthenticateResults.WithLabelValues(OutcomeMalformed.String()).Inc()
		ch <- Result{Outcome: OutcomeMalformed, Err: err}
		close(ch)
		return Future{ch: ch}
	}
	pr.datagram = datagram
	pr.nextSendTime = time.Now().Add(p.opts.RetryInterval)

	// Every pendingRequest field is now set; publishing it to the table
	// is the first point the sweep goroutine or a receive loop can see
	// pr at all, so there is no window where either observes a
	// partially-built request.
	sock.table.publish(id, pr)

	metrics.RequestsInFlight.Inc()
	metrics.IdentifiersInUse.Inc()

	if _, err := sock.conn.WriteToUDP(datagram, p.servers[pr.serverIndex]); err != nil {
		p.opts.Logger.Warn("client: initial send failed", "server", p.servers[pr.serverIndex], "error", err)
	}

	return Future{ch: ch}
}

// Close unblocks every pending completion with Cancelled, stops the
// sweep task, and closes all sockets. The receive loops exit when their
// socket closes; the sweep task exits on the stop signal — no goroutine
// leaks (spec.md §4.2 Cancellation).
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	close(p.stop)
	p.closeSockets()
	p.wg.Wait()

	for _, sock := range p.sockets {
		for _, pr := range sock.table.snapshot() {
			if pr.markCompleted() {
				metrics.RequestsInFlight.Dec()
				metrics.IdentifiersInUse.Dec()
				metrics.AuthenticateResults.WithLabelValues(OutcomeCancelled.String()).Inc()
				pr.deliver(Result{Outcome: OutcomeCancelled, Err: radius.ErrCancelled})
			}
		}
	}
}

func (p *Pool) closeSockets() {
	for _, sock := range p.sockets {
		if sock != nil && sock.conn != nil {
			sock.conn.Close()
		}
	}
}
