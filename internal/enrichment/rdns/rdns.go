package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"topomap/internal/naming"
)

// Resolver looks up PTR names against one configured DNS server.
type Resolver struct {
	server string
	client *dns.Client
}

// NewResolver returns a resolver for server ("host" or "host:port").
func NewResolver(server string, timeout time.Duration) *Resolver {
	server = strings.TrimSpace(server)
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// LookupAddr returns the PTR names of address, without trailing dots and deduplicated.
func (r *Resolver) LookupAddr(ctx context.Context, address string) ([]string, error) {
	if r == nil {
		return nil, errors.New("resolver is nil")
	}
	arpa, err := dns.ReverseAddr(address)
	if err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("ptr lookup %s: %s", address, dns.RcodeToString[in.Rcode])
	}

	out := make([]string, 0, len(in.Answer))
	seen := make(map[string]struct{}, len(in.Answer))
	for _, rr := range in.Answer {
		ptr, ok := rr.(*dns.PTR)
		if !ok {
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(ptr.Ptr, "."))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// LookupHostname returns the most useful PTR name of address, or "" when none
// qualifies. Addresses that are already names are returned unchanged.
func (r *Resolver) LookupHostname(ctx context.Context, address string) (string, error) {
	if net.ParseIP(address) == nil {
		return address, nil
	}
	names, err := r.LookupAddr(ctx, address)
	if err != nil {
		return "", err
	}
	candidates := make([]naming.Candidate, 0, len(names))
	for _, n := range names {
		candidates = append(candidates, naming.Candidate{Name: n, Source: "reverse_dns"})
	}
	best, _ := naming.BestHostname(candidates)
	return best, nil
}
