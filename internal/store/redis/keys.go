package redis

import "strings"

const (
	// KeyPrefixCache is the prefix for cached resolutions
	KeyPrefixCache = "linkdesk:resolve:"
	// KeyUsage is the hash of alias -> resolution count
	KeyUsage = "linkdesk:usage"
	// KeySync holds the last synced revision
	KeySync = "linkdesk:sync"
)

// CacheKey returns the Redis key for a cached resolution. Queries are
// lower-cased and inner whitespace collapsed so equivalent lookups share a key.
func CacheKey(query string) string {
	return KeyPrefixCache + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// UsageKey returns the key of the usage hash
func UsageKey() string {
	return KeyUsage
}

// SyncKey returns the key of the sync record
func SyncKey() string {
	return KeySync
}
