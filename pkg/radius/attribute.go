package radius

import (
	"encoding/binary"
	"net"
)

// Attribute is a single RADIUS attribute TLV (RFC 2865 §5): a one-byte type,
// a one-byte length (including the two header bytes), and a value of
// 0..253 bytes. Unknown types are preserved as opaque binary so decoding
// is forward-compatible with attributes this package doesn't interpret.
type Attribute struct {
	Type  AttrType
	Value []byte
}

// Attributes is an ordered attribute list, in wire order. Order is
// preserved on decode and encode; callers needing the n-th occurrence of a
// repeated type should scan in order rather than relying on a map.
type Attributes []Attribute

// Add appends a raw attribute.
func (a *Attributes) Add(t AttrType, value []byte) {
	*a = append(*a, Attribute{Type: t, Value: value})
}

// AddString appends a UTF-8 text attribute (no terminator, per RFC 2865 §5.1).
func (a *Attributes) AddString(t AttrType, s string) {
	a.Add(t, []byte(s))
}

// AddUint32 appends a 32-bit big-endian integer attribute.
func (a *Attributes) AddUint32(t AttrType, v uint32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	a.Add(t, b)
}

// AddIPv4 appends a 4-byte big-endian IPv4 address attribute.
func (a *Attributes) AddIPv4(t AttrType, ip net.IP) {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	a.Add(t, append([]byte(nil), v4...))
}

// Get returns the first attribute of the given type and whether it was found.
func (a Attributes) Get(t AttrType) ([]byte, bool) {
	for _, attr := range a {
		if attr.Type == t {
			return attr.Value, true
		}
	}
	return nil, false
}

// GetAll returns every attribute of the given type, in wire order.
func (a Attributes) GetAll(t AttrType) [][]byte {
	var out [][]byte
	for _, attr := range a {
		if attr.Type == t {
			out = append(out, attr.Value)
		}
	}
	return out
}

// GetString returns the first attribute of the given type decoded as UTF-8 text.
func (a Attributes) GetString(t AttrType) (string, bool) {
	v, ok := a.Get(t)
	if !ok {
		return "", false
	}
	return string(v), true
}

// GetUint32 returns the first attribute of the given type decoded as a
// 32-bit big-endian integer. ok is false if the attribute is absent or not
// exactly 4 bytes.
func (a Attributes) GetUint32(t AttrType) (uint32, bool) {
	v, ok := a.Get(t)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// GetIPv4 returns the first attribute of the given type decoded as an IPv4
// address. ok is false if the attribute is absent or not exactly 4 bytes.
func (a Attributes) GetIPv4(t AttrType) (net.IP, bool) {
	v, ok := a.Get(t)
	if !ok || len(v) != 4 {
		return nil, false
	}
	ip := make(net.IP, 4)
	copy(ip, v)
	return ip, true
}

// encodedLen returns the wire length of this attribute: 2 header bytes + value.
func (a Attribute) encodedLen() int {
	return 2 + len(a.Value)
}
