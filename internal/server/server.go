// Package server implements the RADIUS server dispatcher (spec.md §4.3):
// receive datagrams, resolve the sending NAS, decode the request, invoke
// the pluggable authentication callback on a worker (never the receive
// loop), sign and emit a response, and log the outcome. Grounded on the
// teacher's DHCP server (internal/dhcp.Server): listen-socket setup,
// per-packet goroutine dispatch, and graceful shutdown via a done channel
// plus WaitGroup drain.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/raddaemon/raddaemon/internal/diagnostics"
	"github.com/raddaemon/raddaemon/internal/nas"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

// AuthenticateFunc is the server's required credential-verification
// callback (spec.md §6). It may block; the dispatcher always invokes it
// from a worker goroutine, never from the receive loop.
type AuthenticateFunc func(realm, account, password string) bool

// Options configures a Server (spec.md §4.3, §6).
type Options struct {
	NetworkBinding     string // default "0.0.0.0:1812"
	SocketBuffer       int
	DnsRefreshInterval time.Duration
	RealmFormat        radius.RealmFormat
	DefaultSecret      string

	// WorkerLimit bounds concurrent callback invocations. Zero means
	// unbounded: one goroutine per in-flight request, matching the
	// teacher's DHCP dispatch style.
	WorkerLimit int

	Authenticate AuthenticateFunc
	Sink         diagnostics.Sink
	Logger       *slog.Logger
}

func (o *Options) setDefaults() {
	if o.NetworkBinding == "" {
		o.NetworkBinding = fmt.Sprintf("0.0.0.0:%d", radius.DefaultServerPort)
	}
	if o.DnsRefreshInterval <= 0 {
		o.DnsRefreshInterval = 15 * time.Minute
	}
	if o.RealmFormat == "" {
		o.RealmFormat = radius.RealmFormatEmail
	}
	if o.Sink == nil {
		o.Sink = diagnostics.NopSink
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Server is the RADIUS server dispatcher.
type Server struct {
	opts     Options
	registry *nas.Registry

	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	wg     sync.WaitGroup
	done   chan struct{}
	sem    chan struct{} // nil when WorkerLimit == 0
}

// New creates a Server bound to its own NAS registry. Callers populate the
// registry via RegisterNas before or after Start.
func New(opts Options, registry *nas.Registry) (*Server, error) {
	opts.setDefaults()
	if opts.Authenticate == nil {
		return nil, fmt.Errorf("server: Authenticate callback is required")
	}

	s := &Server{
		opts:     opts,
		registry: registry,
		done:     make(chan struct{}),
	}
	if opts.WorkerLimit > 0 {
		s.sem = make(chan struct{}, opts.WorkerLimit)
	}
	return s, nil
}

// Start binds the listening socket and begins the receive loop and the
// NAS DNS-refresh ticker (spec.md §4.3 "Startup").
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", s.opts.NetworkBinding)
	if err != nil {
		return fmt.Errorf("server: resolving %s: %w", s.opts.NetworkBinding, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", s.opts.NetworkBinding, err)
	}
	if s.opts.SocketBuffer > 0 {
		_ = conn.SetReadBuffer(s.opts.SocketBuffer)
	}
	s.conn = conn

	// Wrapping the socket lets a multi-homed server report which local
	// address actually received a given request, for diagnostics.
	s.pconn = ipv4.NewPacketConn(conn)
	if err := s.pconn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		s.opts.Logger.Warn("server: enabling destination control messages failed", "error", err)
		s.pconn = nil
	}

	s.opts.Logger.Info("radius server listening", "address", s.opts.NetworkBinding)

	s.wg.Add(1)
	go s.serve()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.registry.StartDNSRefresh(s.opts.DnsRefreshInterval, s.done)
	}()

	return nil
}

// Addr returns the listening socket's local address. Valid after Start.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Stop closes the listening socket (terminating the receive loop) and
// waits for in-flight callback workers to drain (spec.md §5 "Cancellation
// and timeouts": "the server's shutdown closes the socket, which
// terminates the receive loop and drains workers").
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		buf := radius.GetBuffer()

		var n int
		var src *net.UDPAddr
		var local net.IP
		var err error

		if s.pconn != nil {
			var cm *ipv4.ControlMessage
			var srcAddr net.Addr
			n, cm, srcAddr, err = s.pconn.ReadFrom(buf)
			if a, ok := srcAddr.(*net.UDPAddr); ok {
				src = a
			}
			if cm != nil {
				local = cm.Dst
			}
		} else {
			n, src, err = s.conn.ReadFromUDP(buf)
		}

		if err != nil {
			radius.PutBuffer(buf)
			select {
			case <-s.done:
				return
			default:
			}
			s.opts.Logger.Warn("server: read failed", "error", err)
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		radius.PutBuffer(buf)

		s.dispatch(data, src, local)
	}
}

// dispatch hands one datagram to a worker goroutine, optionally bounded
// by a semaphore (spec.md §4.3 step 4, §9 "Callback isolation").
func (s *Server) dispatch(data []byte, src *net.UDPAddr, local net.IP) {
	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
		case <-s.done:
			return
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			defer func() { <-s.sem }()
		}
		s.processPacket(data, src, local)
	}()
}
