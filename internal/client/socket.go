package client

import (
	"net"

	"github.com/raddaemon/raddaemon/internal/diagnostics"
	"github.com/raddaemon/raddaemon/internal/metrics"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

// socket is one of the pool's N UDP sockets, each with its own 256-slot
// identifier table (spec.md §4.2).
type socket struct {
	pool  *Pool
	index int
	conn  *net.UDPConn
	table *identTable
}

func newSocket(p *Pool, index int) (*socket, error) {
	laddr, err := net.ResolveUDPAddr("udp4", p.opts.LocalBinding)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, err
	}
	if p.opts.SocketBuffer > 0 {
		_ = conn.SetReadBuffer(p.opts.SocketBuffer)
	}
	return &socket{pool: p, index: index, conn: conn, table: newIdentTable()}, nil
}

func (s *socket) localAddr() *net.UDPAddr {
	if addr, ok := s.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr
	}
	return &net.UDPAddr{}
}

// isKnownServer reports whether src matches one of the pool's configured servers.
func (s *socket) isKnownServer(src *net.UDPAddr) bool {
	for _, srv := range s.pool.servers {
		if srv.IP.Equal(src.IP) && srv.Port == src.Port {
			return true
		}
	}
	return false
}

// receiveLoop is the per-socket response handler (spec.md §4.2 "Response
// handling"). Grounded on the teacher's DHCP server serve() loop: a
// pooled buffer per read, malformed datagrams dropped and logged, never
// torn down by a parse error.
func (s *socket) receiveLoop() {
	for {
		buf := radius.GetBuffer()
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			radius.PutBuffer(buf)
			select {
			case <-s.pool.stop:
				return
			default:
			}
			if isClosedConnError(err) {
				return
			}
			s.pool.opts.Logger.Warn("client: read failed", "socket", s.index, "error", err)
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		radius.PutBuffer(buf)
		s.handleDatagram(data, src)
	}
}

func (s *socket) handleDatagram(data []byte, src *net.UDPAddr) {
	pkt, err := radius.Decode(data)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("client", "malformed").Inc()
		s.pool.opts.Sink.OnLog(diagnostics.LogEntry{
			EntryKind: diagnostics.KindMalformedPacket,
			Success:   false,
			Detail:    err.Error(),
		})
		return
	}
	metrics.PacketsReceived.WithLabelValues("client", pkt.Code.String()).Inc()

	if !s.isKnownServer(src) {
		return // not one of our servers; drop silently
	}

	pr, ok := s.table.lookup(pkt.Identifier)
	if !ok {
		return // no matching pending request; drop silently
	}

	if !radius.VerifyResponseAuthenticator(data, pr.requestAuthenticator, s.pool.opts.Secret) {
		metrics.PacketErrors.WithLabelValues("client", "secret_mismatch").Inc()
		s.pool.opts.Sink.OnLog(diagnostics.LogEntry{
			EntryKind:   diagnostics.KindSecretMismatch,
			Success:     false,
			Realm:       pr.realm,
			Account:     pr.account,
			NasEndpoint: src,
		})
		return // a later retry may still succeed
	}

	var outcome Outcome
	switch pkt.Code {
	case radius.CodeAccessAccept:
		outcome = OutcomeAccept
	case radius.CodeAccessReject:
		outcome = OutcomeReject
	default:
		return // any other code is dropped (spec.md §4.2 step 5)
	}

	if !pr.markCompleted() {
		return // already completed by a timeout racing this response
	}
	s.table.release(pr.identifier)
	metrics.RequestsInFlight.Dec()
	metrics.IdentifiersInUse.Dec()
	metrics.AuthenticateResults.WithLabelValues(outcome.String()).Inc()
	s.pool.opts.Sink.OnLog(diagnostics.LogEntry{
		EntryKind:   diagnostics.KindAuthentication,
		Success:     outcome == OutcomeAccept,
		Realm:       pr.realm,
		Account:     pr.account,
		NasEndpoint: src,
	})
	pr.deliver(Result{Outcome: outcome})
}

func isClosedConnError(err error) bool {
	return err != nil && (err == net.ErrClosed ||
		(func() bool { _, ok := err.(*net.OpError); return ok && isClosedConnErrorString(err.Error()) })())
}

func isClosedConnErrorString(s string) bool {
	const marker = "use of closed network connection"
	return len(s) >= len(marker) && (s[len(s)-len(marker):] == marker)
}
