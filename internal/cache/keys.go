package cache

import (
	"encoding/base64"
	"strings"
)

// Key layout, per meeting id M (segments are base64url-encoded so any opaque
// id is a valid store key):
//
//	session.<M>            Session record
//	entries.<M>.<P>        Entry Set field for participant P
//	queue.<M>              Order Queue
//	acks.<M>.<P>           Acknowledgment Store field (expiring)
const (
	prefixSession = "session"
	prefixEntries = "entries"
	prefixQueue   = "queue"
	prefixAcks    = "acks"
)

// SessionKey is the record key for a meeting's session.
func SessionKey(meetingID string) string { return prefixSession + "." + encodeSegment(meetingID) }

// EntriesKey is the hash holding a meeting's raised-hand entries.
func EntriesKey(meetingID string) string { return prefixEntries + "." + encodeSegment(meetingID) }

// QueueKey is the list holding a meeting's raise order.
func QueueKey(meetingID string) string { return prefixQueue + "." + encodeSegment(meetingID) }

// AcksKey is the expiring hash holding a meeting's acknowledgment records.
func AcksKey(meetingID string) string { return prefixAcks + "." + encodeSegment(meetingID) }

// IsExpiring reports whether key lives in the expiring keyspace.
func IsExpiring(key string) bool {
	return strings.HasPrefix(key, prefixAcks+".")
}

func fieldKey(hash, field string) string {
	return hash + "." + encodeSegment(field)
}

func encodeSegment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeSegment(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
