package server

import (
	"net"
	"time"

	"github.com/raddaemon/raddaemon/internal/diagnostics"
	"github.com/raddaemon/raddaemon/internal/metrics"
	"github.com/raddaemon/raddaemon/internal/nas"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

// RegisterNas adds a NAS entry to the server's registry (spec.md §6
// "RegisterNas(entry)").
func (s *Server) RegisterNas(entry *nas.Entry) error {
	return s.registry.Register(entry)
}

// processPacket implements spec.md §4.3 "Per-packet processing", steps
// 1-6. It always runs off the receive loop (invoked only from dispatch's
// worker goroutine).
func (s *Server) processPacket(data []byte, src *net.UDPAddr, local net.IP) {
	start := time.Now()
	codeLabel := "malformed"
	defer func() {
		metrics.PacketProcessingDuration.WithLabelValues(codeLabel).Observe(time.Since(start).Seconds())
	}()

	pkt, err := radius.Decode(data)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("server", "malformed").Inc()
		s.opts.Sink.OnLog(diagnostics.LogEntry{
			EntryKind:    diagnostics.KindMalformedPacket,
			Success:      false,
			NasEndpoint:  src,
			LocalAddress: local,
			Detail:       err.Error(),
		})
		return
	}
	codeLabel = pkt.Code.String()
	metrics.PacketsReceived.WithLabelValues("server", pkt.Code.String()).Inc()

	if pkt.Code != radius.CodeAccessRequest {
		return // only Access-Request is handled; anything else is dropped
	}

	entry, ok := s.registry.Lookup(src.IP)
	if !ok {
		metrics.UnknownNas.Inc()
		s.opts.Sink.OnLog(diagnostics.LogEntry{
			EntryKind:    diagnostics.KindUnknownNas,
			Success:      false,
			NasEndpoint:  src,
			LocalAddress: local,
			Detail:       "no NAS entry matches source address",
		})
		return // no response is sent
	}

	qualifiedName, _ := pkt.Attributes.GetString(radius.AttrUserName)
	realm, account := radius.ParseRealm(qualifiedName, s.opts.RealmFormat)

	encPw, _ := pkt.Attributes.Get(radius.AttrUserPassword)
	password, err := radius.DecryptPassword(encPw, entry.SharedSecret, pkt.Authenticator)
	if err != nil {
		metrics.PacketErrors.WithLabelValues("server", "malformed").Inc()
		s.opts.Sink.OnLog(diagnostics.LogEntry{
			EntryKind:    diagnostics.KindMalformedPacket,
			Success:      false,
			Realm:        realm,
			Account:      account,
			NasEndpoint:  src,
			LocalAddress: local,
			Detail:       err.Error(),
		})
		return
	}

	callbackStart := time.Now()
	success := s.opts.Authenticate(realm, account, password)
	metrics.CallbackDuration.Observe(time.Since(callbackStart).Seconds())

	s.respond(pkt, src, entry.SharedSecret, success)

	metrics.AuthResults.WithLabelValues(realm, outcomeLabel(success)).Inc()
	s.opts.Sink.OnLog(diagnostics.LogEntry{
		EntryKind:    diagnostics.KindAuthentication,
		Success:      success,
		Realm:        realm,
		Account:      account,
		NasEndpoint:  src,
		LocalAddress: local,
	})
}

func (s *Server) respond(request *radius.Packet, src *net.UDPAddr, secret string, success bool) {
	resp := &radius.Packet{
		Code:       radius.CodeAccessReject,
		Identifier: request.Identifier,
	}
	if success {
		resp.Code = radius.CodeAccessAccept
	}

	if err := radius.SignResponse(resp, request.Authenticator, secret); err != nil {
		s.opts.Logger.Error("server: signing response failed", "error", err)
		return
	}

	datagram, err := resp.Encode()
	if err != nil {
		s.opts.Logger.Error("server: encoding response failed", "error", err)
		return
	}

	if _, err := s.conn.WriteToUDP(datagram, src); err != nil {
		s.opts.Logger.Warn("server: sending response failed", "dest", src, "error", err)
		return
	}
	metrics.PacketsSent.WithLabelValues("server", resp.Code.String()).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "accept"
	}
	return "reject"
}
