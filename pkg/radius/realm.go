package radius

import "strings"

// RealmFormat selects the convention used to combine a realm and an
// account into (or split one out of) a qualified username (spec.md §4.4).
type RealmFormat string

const (
	RealmFormatEmail RealmFormat = "email" // user@realm
	RealmFormatSlash RealmFormat = "slash" // realm/user
)

// ParseRealm splits a qualified username into (realm, account) per format.
//
//   - email: split at the *last* '@'; left side is account, right is realm.
//     No '@' present: realm is empty, account is the whole username.
//   - slash: split at the *first* '/'; left side is realm, right is account.
//     No '/' present: realm is empty, account is the whole username.
func ParseRealm(username string, format RealmFormat) (realm, account string) {
	switch format {
	case RealmFormatSlash:
		if i := strings.IndexByte(username, '/'); i >= 0 {
			return username[:i], username[i+1:]
		}
		return "", username
	default: // RealmFormatEmail
		if i := strings.LastIndexByte(username, '@'); i >= 0 {
			return username[i+1:], username[:i]
		}
		return "", username
	}
}

// FormatRealm is the inverse of ParseRealm: it joins (realm, account) back
// into a qualified username. An empty realm produces the bare account.
func FormatRealm(realm, account string, format RealmFormat) string {
	if realm == "" {
		return account
	}
	switch format {
	case RealmFormatSlash:
		return realm + "/" + account
	default: // RealmFormatEmail
		return account + "@" + realm
	}
}
