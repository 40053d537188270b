package radius

import (
	"bytes"
	"encoding/hex"
	"net"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex literal: %v", err)
	}
	return b
}

// S1 — RFC 2865 §7.1 worked example.
func TestScenarioS1HappyPath(t *testing.T) {
	const secret = "xyzzy5461"

	reqBytes := mustHex(t, "01 00 00 38 0f 40 3f 94 73 97 80 57 bd 83 d5 cb 98 f4 22 7a "+
		"01 06 6e 65 6d 6f "+
		"02 12 0d be 70 8d 93 d4 13 ce 31 96 e4 3f 78 2a 0a ee "+
		"04 06 c0 a8 01 10 "+
		"05 06 00 00 00 03")

	req, err := Decode(reqBytes)
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}

	user, ok := req.Attributes.GetString(AttrUserName)
	if !ok || user != "nemo" {
		t.Fatalf("UserName = %q, %v", user, ok)
	}

	encPw, ok := req.Attributes.Get(AttrUserPassword)
	if !ok {
		t.Fatalf("missing UserPassword attribute")
	}
	pw, err := DecryptPassword(encPw, secret, req.Authenticator)
	if err != nil {
		t.Fatalf("decrypt password: %v", err)
	}
	if pw != "arctangent" {
		t.Fatalf("password = %q, want arctangent", pw)
	}

	nasIP, ok := req.Attributes.GetIPv4(AttrNasIPAddress)
	if !ok || !nasIP.Equal(net.IPv4(192, 168, 1, 16)) {
		t.Fatalf("NasIpAddress = %v, %v", nasIP, ok)
	}
	nasPort, ok := req.Attributes.GetUint32(AttrNasPort)
	if !ok || nasPort != 3 {
		t.Fatalf("NasPort = %v, %v", nasPort, ok)
	}

	resp := &Packet{Code: CodeAccessAccept, Identifier: 0}
	resp.Attributes.AddUint32(AttrServiceType, 1)
	resp.Attributes.AddUint32(AttrLoginService, 0)
	resp.Attributes.AddIPv4(AttrLoginIPHost, net.IPv4(192, 168, 1, 3))

	if err := SignResponse(resp, req.Authenticator, secret); err != nil {
		t.Fatalf("sign response: %v", err)
	}
	encoded, err := resp.Encode()
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}

	want := mustHex(t, "02 00 00 26 86 fe 22 0e 76 24 ba 2a 10 05 f6 bf 9b 55 e0 b2 "+
		"06 06 00 00 00 01 "+
		"0f 06 00 00 00 00 "+
		"0e 06 c0 a8 01 03")

	if !bytes.Equal(encoded, want) {
		t.Fatalf("response bytes =\n%x\nwant\n%x", encoded, want)
	}

	if !VerifyResponseAuthenticator(encoded, req.Authenticator, secret) {
		t.Fatalf("response authenticator failed to verify against its own request")
	}
}

// Invariant 1: Decode(Encode(p)) == p.
func TestDecodeEncodeRoundTrip(t *testing.T) {
	p := &Packet{Code: CodeAccessRequest, Identifier: 42}
	auth, err := NewRequestAuthenticator()
	if err != nil {
		t.Fatal(err)
	}
	p.Authenticator = auth
	p.Attributes.AddString(AttrUserName, "jeff@example.com")
	p.Attributes.AddUint32(AttrNasPort, 7)
	p.Attributes.AddIPv4(AttrNasIPAddress, net.IPv4(10, 0, 0, 1))

	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Code != p.Code || decoded.Identifier != p.Identifier || decoded.Authenticator != p.Authenticator {
		t.Fatalf("header mismatch: got %+v, want %+v", decoded, p)
	}
	if len(decoded.Attributes) != len(p.Attributes) {
		t.Fatalf("attribute count mismatch: got %d, want %d", len(decoded.Attributes), len(p.Attributes))
	}
	for i := range p.Attributes {
		if decoded.Attributes[i].Type != p.Attributes[i].Type ||
			!bytes.Equal(decoded.Attributes[i].Value, p.Attributes[i].Value) {
			t.Fatalf("attribute %d mismatch: got %+v, want %+v", i, decoded.Attributes[i], p.Attributes[i])
		}
	}
}

func TestDecodeRejectsShortPacket(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatal("expected malformed error for short packet")
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	p := &Packet{Code: CodeAccessRequest, Identifier: 1}
	encoded, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	encoded = append(encoded, 0, 0, 0) // trailing garbage not reflected in length
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected malformed error for length mismatch")
	}
}

func TestDecodeRejectsTruncatedAttribute(t *testing.T) {
	p := &Packet{Code: CodeAccessRequest, Identifier: 1}
	p.Attributes.AddString(AttrUserName, "nemo")
	encoded, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the attribute length byte to claim more than remains.
	encoded[HeaderSize+1] = 0xFF
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected malformed error for attribute overrun")
	}
}

func TestUnknownAttributePreservedAsBinary(t *testing.T) {
	p := &Packet{Code: CodeAccessRequest, Identifier: 1}
	p.Attributes.Add(AttrType(200), []byte{0xDE, 0xAD, 0xBE, 0xEF})
	encoded, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := decoded.Attributes.Get(AttrType(200))
	if !ok || !bytes.Equal(v, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("unknown attribute not preserved: %v, %v", v, ok)
	}
}
