package radius

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// Packet is a decoded RADIUS datagram (RFC 2865 §3).
//
// Wire layout: code:u8 | identifier:u8 | length:u16-be | authenticator:16 | attributes...
// Each attribute: type:u8 | length:u8 | value:(length-2).
type Packet struct {
	Code          Code
	Identifier    byte
	Authenticator [AuthenticatorSize]byte
	Attributes    Attributes

	// SourceEndpoint is populated only on receive; it is not part of the wire format.
	SourceEndpoint *net.UDPAddr
}

// bufferPool reuses receive buffers across the client and server hot paths,
// mirroring the teacher's DHCP packet buffer pool.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, MaxPacketSize)
	},
}

// GetBuffer returns a zeroed buffer sized to the largest legal RADIUS datagram.
func GetBuffer() []byte {
	return bufferPool.Get().([]byte)
}

// PutBuffer returns a buffer to the pool, zeroing it first so stale
// attribute bytes never leak between requests.
func PutBuffer(b []byte) {
	for i := range b {
		b[i] = 0
	}
	bufferPool.Put(b)
}

// Decode parses a raw RADIUS datagram. It rejects datagrams shorter than
// the 20-byte header, whose declared length disagrees with the buffer size
// or exceeds MaxPacketSize, or that contain a truncated/overrunning
// attribute. All such datagrams are malformed: discard and log, never
// respond (spec.md §4.1, §4.3).
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, NewError(KindMalformed, errPacketTooShort)
	}

	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length < MinPacketSize || length > MaxPacketSize {
		return nil, NewError(KindMalformed, errLengthOutOfRange)
	}
	if length != len(data) {
		return nil, NewError(KindMalformed, errLengthMismatch)
	}

	p := &Packet{
		Code:       Code(data[0]),
		Identifier: data[1],
	}
	copy(p.Authenticator[:], data[4:20])

	attrs, err := decodeAttributes(data[HeaderSize:length])
	if err != nil {
		return nil, err
	}
	p.Attributes = attrs

	return p, nil
}

func decodeAttributes(buf []byte) (Attributes, error) {
	var attrs Attributes
	for len(buf) > 0 {
		if len(buf) < 2 {
			return nil, NewError(KindMalformed, errAttrTooShort)
		}
		t := AttrType(buf[0])
		l := int(buf[1])
		if l < 2 {
			return nil, NewError(KindMalformed, errAttrTooShort)
		}
		if l > len(buf) {
			return nil, NewError(KindMalformed, errAttrOverrunsBuf)
		}
		value := make([]byte, l-2)
		copy(value, buf[2:l])
		attrs = append(attrs, Attribute{Type: t, Value: value})
		buf = buf[l:]
	}
	return attrs, nil
}

// Encode serializes the packet. The authenticator field is written exactly
// as it currently stands on p.Authenticator — callers are responsible for
// having already set it to a fresh random value (Access-Request) or to the
// computed response authenticator (Access-Accept/-Reject/-Challenge) before
// calling Encode. See SignResponse.
func (p *Packet) Encode() ([]byte, error) {
	total := HeaderSize
	for _, a := range p.Attributes {
		if len(a.Value) > MaxAttrValueSize {
			return nil, NewError(KindInvalidInput, fmt.Errorf("radius: attribute %d value too long (%d bytes)", a.Type, len(a.Value)))
		}
		total += a.encodedLen()
	}
	if total > MaxPacketSize {
		return nil, NewError(KindInvalidInput, fmt.Errorf("radius: encoded packet too large (%d bytes)", total))
	}

	buf := make([]byte, total)
	buf[0] = byte(p.Code)
	buf[1] = p.Identifier
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[4:20], p.Authenticator[:])

	off := HeaderSize
	for _, a := range p.Attributes {
		buf[off] = byte(a.Type)
		buf[off+1] = byte(a.encodedLen())
		copy(buf[off+2:], a.Value)
		off += a.encodedLen()
	}

	return buf, nil
}

// String returns a short human-readable summary for logging.
func (p *Packet) String() string {
	return fmt.Sprintf("%s id=%d attrs=%d", p.Code, p.Identifier, len(p.Attributes))
}
