package radius

import (
	"net"
	"testing"

	layehradius "layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// These tests cross-check our hand-rolled codec against layeh.com/radius,
// the library the rest of this corpus uses as its RADIUS client/server
// dependency. The wire codec itself is deliberately NOT built on top of
// layeh.com/radius (spec.md §1 calls the codec "the hard engineering" of
// this subsystem) — these tests exist only to prove the two
// implementations agree on the wire.

func TestInteropDecodesLayehEncodedRequest(t *testing.T) {
	const secret = "xyzzy5461"

	pkt := layehradius.New(layehradius.CodeAccessRequest, []byte(secret))
	reqAuth, err := NewRequestAuthenticator()
	if err != nil {
		t.Fatal(err)
	}
	pkt.Identifier = 7
	pkt.Authenticator = reqAuth

	if err := rfc2865.UserName_SetString(pkt, "nemo"); err != nil {
		t.Fatal(err)
	}
	if err := rfc2865.UserPassword_SetString(pkt, "arctangent"); err != nil {
		t.Fatal(err)
	}
	if err := rfc2865.NASIPAddress_Set(pkt, net.IPv4(192, 168, 1, 16)); err != nil {
		t.Fatal(err)
	}
	if err := rfc2865.NASPort_Set(pkt, rfc2865.NASPort(3)); err != nil {
		t.Fatal(err)
	}

	encoded, err := pkt.Encode()
	if err != nil {
		t.Fatalf("layeh encode: %v", err)
	}

	ours, err := Decode(encoded)
	if err != nil {
		t.Fatalf("our Decode rejected a layeh-encoded packet: %v", err)
	}

	if ours.Code != CodeAccessRequest || ours.Identifier != 7 || ours.Authenticator != reqAuth {
		t.Fatalf("header mismatch: %+v", ours)
	}

	user, ok := ours.Attributes.GetString(AttrUserName)
	if !ok || user != "nemo" {
		t.Fatalf("UserName = %q, %v", user, ok)
	}

	encPw, ok := ours.Attributes.Get(AttrUserPassword)
	if !ok {
		t.Fatal("missing UserPassword attribute")
	}
	pw, err := DecryptPassword(encPw, secret, ours.Authenticator)
	if err != nil {
		t.Fatalf("our DecryptPassword on a layeh-obfuscated password: %v", err)
	}
	if pw != "arctangent" {
		t.Fatalf("password = %q, want arctangent", pw)
	}

	nasIP, ok := ours.Attributes.GetIPv4(AttrNasIPAddress)
	if !ok || !nasIP.Equal(net.IPv4(192, 168, 1, 16)) {
		t.Fatalf("NasIpAddress = %v, %v", nasIP, ok)
	}
}

func TestInteropLayehVerifiesOurResponseAuthenticator(t *testing.T) {
	const secret = "xyzzy5461"

	reqAuth, err := NewRequestAuthenticator()
	if err != nil {
		t.Fatal(err)
	}

	resp := &Packet{Code: CodeAccessAccept, Identifier: 9}
	resp.Attributes.AddUint32(AttrServiceType, 1)
	if err := SignResponse(resp, reqAuth, secret); err != nil {
		t.Fatal(err)
	}
	encoded, err := resp.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// layeh.com/radius verifies a response the same way: it requires the
	// *request* packet (carrying reqAuth) to validate a response.
	reqPkt := layehradius.New(layehradius.CodeAccessRequest, []byte(secret))
	reqPkt.Authenticator = reqAuth

	respPkt, err := layehradius.Parse(encoded, []byte(secret))
	if err != nil {
		t.Fatalf("layeh failed to parse our response: %v", err)
	}
	if !layehradius.IsAuthenticResponsePacket(respPkt, reqPkt) {
		t.Fatal("layeh rejected our response authenticator as inauthentic")
	}
}
