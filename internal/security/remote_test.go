package security

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

func fixedLookup(addrs ...string) LookupFunc {
	return func(context.Context, string) ([]netip.Addr, error) {
		return mapAddrs(addrs), nil
	}
}

func mapAddrs(addrs []string) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, netip.MustParseAddr(a))
	}
	return out
}

func TestURLPolicy_Check(t *testing.T) {
	public := fixedLookup("20.60.1.1")

	tests := []struct {
		name    string
		policy  URLPolicy
		url     string
		wantErr error
	}{
		{"hosted result", URLPolicy{Lookup: public}, "https://oaidalleapiprodscus.blob.core.windows.net/img.png", nil},
		{"any https host by default", URLPolicy{Lookup: public}, "https://x/y.png", nil},
		{"http rejected", URLPolicy{Lookup: public}, "http://x/y.png", ErrInvalidScheme},
		{"http allowed when insecure", URLPolicy{Lookup: public, AllowInsecure: true}, "http://x/y.png", nil},
		{"ftp rejected even when insecure", URLPolicy{AllowInsecure: true}, "ftp://x/y.png", ErrInvalidScheme},
		{"loopback literal", URLPolicy{}, "https://127.0.0.1/y.png", ErrPrivateIP},
		{"rfc1918 literal", URLPolicy{}, "https://10.1.2.3/y.png", ErrPrivateIP},
		{"cgnat literal", URLPolicy{}, "https://100.64.0.1/y.png", ErrPrivateIP},
		{"link local metadata", URLPolicy{}, "https://169.254.169.254/latest", ErrPrivateIP},
		{"ipv6 loopback", URLPolicy{}, "https://[::1]/y.png", ErrPrivateIP},
		{"ipv6 unique local", URLPolicy{}, "https://[fd00::1]/y.png", ErrPrivateIP},
		{"mapped ipv4 loopback", URLPolicy{}, "https://[::ffff:127.0.0.1]/y.png", ErrPrivateIP},
		{"resolves private", URLPolicy{Lookup: fixedLookup("20.60.1.1", "192.168.0.7")}, "https://x/y.png", ErrPrivateIP},
		{"private allowed", URLPolicy{AllowPrivate: true}, "https://127.0.0.1/y.png", nil},
		{"public literal", URLPolicy{}, "https://8.8.8.8/y.png", nil},
		{"strict trusted subdomain", URLPolicy{TrustedHosts: DefaultTrustedHosts, Lookup: public}, "https://a.dalleprodsec.blob.core.windows.net/y.png", nil},
		{"strict untrusted", URLPolicy{TrustedHosts: DefaultTrustedHosts, Lookup: public}, "https://evil.example/y.png", ErrUntrustedHost},
		{"strict suffix trick", URLPolicy{TrustedHosts: DefaultTrustedHosts, Lookup: public}, "https://evildalleprodsec.blob.core.windows.net/y.png", ErrUntrustedHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(context.Background(), tt.url)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Check() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestURLPolicy_Check_Malformed(t *testing.T) {
	for _, raw := range []string{"https://", "://nope", "https://%zz"} {
		if err := DefaultURLPolicy().Check(context.Background(), raw); err == nil {
			t.Errorf("Check(%q) error = nil, want error", raw)
		}
	}
}

func TestURLPolicy_Check_LookupFailure(t *testing.T) {
	p := URLPolicy{Lookup: func(context.Context, string) ([]netip.Addr, error) {
		return nil, errors.New("no such host")
	}}
	if err := p.Check(context.Background(), "https://nowhere.invalid/y.png"); err != nil {
		t.Errorf("Check() error = %v, want nil for unresolvable host", err)
	}
}

func TestStrictURLPolicy(t *testing.T) {
	p := StrictURLPolicy()
	if len(p.TrustedHosts) == 0 {
		t.Fatal("StrictURLPolicy() has no trusted hosts")
	}
	if err := p.Check(context.Background(), "https://example.com/y.png"); !errors.Is(err, ErrUntrustedHost) {
		t.Errorf("Check() error = %v, want ErrUntrustedHost", err)
	}
}
