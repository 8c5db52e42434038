package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// SourceRemoteAddr marks a client address read from the TCP peer.
const SourceRemoteAddr = "remote_addr"

// proxyHeaders are consulted in order when the proxy is trusted.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Client is the resolved origin of a request.
type Client struct {
	Addr   netip.Addr // zero when nothing parsed
	Source string     // proxy header name or SourceRemoteAddr
}

func (c Client) String() string {
	if !c.Addr.IsValid() {
		return "unknown"
	}
	return c.Addr.String()
}

// RateKey is the bucket a client is limited under. IPv6 clients are
// grouped by /64, the smallest block a host usually gets.
func (c Client) RateKey() string {
	if !c.Addr.IsValid() {
		return "unknown"
	}
	if c.Addr.Is6() {
		p, err := c.Addr.Prefix(64)
		if err == nil {
			return p.String()
		}
	}
	return c.Addr.String()
}

// ResolveClient finds who sent r. With trustProxy the proxy headers win,
// first valid one in proxyHeaders order; unparsable values are skipped.
// Only enable it when the origin is reachable through a trusted proxy
// alone (cloudflared on localhost, for instance).
func ResolveClient(r *http.Request, trustProxy bool) Client {
	if trustProxy {
		for _, h := range proxyHeaders {
			v := r.Header.Get(h)
			if h == "X-Forwarded-For" {
				v, _, _ = strings.Cut(v, ",")
			}
			if a, ok := parseAddr(v); ok {
				return Client{Addr: a, Source: h}
			}
		}
	}
	a, _ := parseAddr(r.RemoteAddr)
	return Client{Addr: a, Source: SourceRemoteAddr}
}

// parseAddr accepts "ip", "ip:port" and "[v6]:port".
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	a, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// ParseHostNoPort returns the host part of "host:port", or s unchanged.
func ParseHostNoPort(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// AddrSet matches addresses against single IPs and CIDR blocks.
type AddrSet struct {
	prefixes []netip.Prefix
}

// NewAddrSet parses list. Entries that are neither an IP nor a CIDR are
// returned in rejected and otherwise ignored.
func NewAddrSet(list []string) (set *AddrSet, rejected []string) {
	set = &AddrSet{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			a = a.Unmap()
			set.prefixes = append(set.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		rejected = append(rejected, s)
	}
	return set, rejected
}

func (s *AddrSet) Empty() bool { return len(s.prefixes) == 0 }

func (s *AddrSet) Contains(a netip.Addr) bool {
	if !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
