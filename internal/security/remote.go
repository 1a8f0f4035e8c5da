// Package security guards the two places Lad Maker touches things it did not
// create: hosted result URLs it downloads and file names it writes.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrInvalidScheme = errors.New("only https result urls are allowed")
	ErrUntrustedHost = errors.New("result url host is not trusted")
	ErrPrivateIP     = errors.New("result url resolves to a private address")
)

// DefaultTrustedHosts are the storage hosts the image API serves results from.
var DefaultTrustedHosts = []string{
	"oaidalleapiprodscus.blob.core.windows.net",
	"dalleprodsec.blob.core.windows.net",
}

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// URLPolicy decides whether a hosted result may be downloaded.
type URLPolicy struct {
	AllowInsecure bool
	AllowPrivate  bool
	// TrustedHosts restricts downloads to these hosts and their subdomains
	// when non-empty.
	TrustedHosts []string
	Lookup       LookupFunc
}

func DefaultURLPolicy() URLPolicy {
	return URLPolicy{}
}

func StrictURLPolicy() URLPolicy {
	return URLPolicy{TrustedHosts: DefaultTrustedHosts}
}

func (p URLPolicy) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid result url: %w", err)
	}

	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && p.AllowInsecure:
	default:
		return ErrInvalidScheme
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid result url: missing host")
	}
	if len(p.TrustedHosts) > 0 && !trusted(host, p.TrustedHosts) {
		return fmt.Errorf("%w: %s", ErrUntrustedHost, host)
	}
	if p.AllowPrivate {
		return nil
	}

	addrs, err := p.resolve(ctx, host)
	if err != nil {
		// Unresolvable hosts fail later at download time.
		return nil
	}
	if lo.SomeBy(addrs, blocked) {
		return fmt.Errorf("%w: %s", ErrPrivateIP, host)
	}
	return nil
}

func (p URLPolicy) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}
	if p.Lookup != nil {
		return p.Lookup(ctx, host)
	}
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

func trusted(host string, hosts []string) bool {
	return lo.SomeBy(hosts, func(h string) bool {
		h = strings.ToLower(h)
		return host == h || strings.HasSuffix(host, "."+h)
	})
}

func blocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return true
	}
	return lo.SomeBy(blockedPrefixes, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}
