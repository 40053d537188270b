package radius

import "testing"

// S2 — realm parsing.
func TestScenarioS2RealmParsing(t *testing.T) {
	cases := []struct {
		format          RealmFormat
		username        string
		wantRealm       string
		wantAccount     string
	}{
		{RealmFormatEmail, "jeff@r1", "r1", "jeff"},
		{RealmFormatEmail, "jeff", "", "jeff"},
		{RealmFormatSlash, "r1/jeff", "r1", "jeff"},
		{RealmFormatSlash, "jeff", "", "jeff"},
	}

	for _, c := range cases {
		realm, account := ParseRealm(c.username, c.format)
		if realm != c.wantRealm || account != c.wantAccount {
			t.Errorf("ParseRealm(%q, %q) = (%q, %q), want (%q, %q)",
				c.username, c.format, realm, account, c.wantRealm, c.wantAccount)
		}
	}
}

func TestFormatRealmIsInverseOfParseRealm(t *testing.T) {
	cases := []struct {
		format  RealmFormat
		realm   string
		account string
	}{
		{RealmFormatEmail, "r1", "jeff"},
		{RealmFormatEmail, "", "jeff"},
		{RealmFormatSlash, "r1", "jeff"},
		{RealmFormatSlash, "", "jeff"},
	}

	for _, c := range cases {
		qualified := FormatRealm(c.realm, c.account, c.format)
		realm, account := ParseRealm(qualified, c.format)
		if realm != c.realm || account != c.account {
			t.Errorf("round trip (%q, %q, %v): qualified=%q got (%q, %q)",
				c.realm, c.account, c.format, qualified, realm, account)
		}
	}
}

func TestParseRealmEmailSplitsAtLastAt(t *testing.T) {
	realm, account := ParseRealm("a@b@realm", RealmFormatEmail)
	if realm != "realm" || account != "a@b" {
		t.Errorf("got (%q, %q), want (%q, %q)", realm, account, "realm", "a@b")
	}
}

func TestParseRealmSlashSplitsAtFirstSlash(t *testing.T) {
	realm, account := ParseRealm("realm/a/b", RealmFormatSlash)
	if realm != "realm" || account != "a/b" {
		t.Errorf("got (%q, %q), want (%q, %q)", realm, account, "realm", "a/b")
	}
}
