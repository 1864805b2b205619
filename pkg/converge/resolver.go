package converge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultResolvConf = "/etc/resolv.conf"
	defaultDNSTimeout = 5 * time.Second
)

// Resolver looks up the IPv4 addresses of a name.
type Resolver interface {
	LookupA(ctx context.Context, name string) ([]string, error)
}

// DNSResolver queries nameservers directly instead of going through the
// system resolver, so lookups are never answered from a local cache.
type DNSResolver struct {
	nameservers []string
	client      *dns.Client
}

// NewDNSResolver uses the given nameservers ("host" or "host:port"), or the
// ones from /etc/resolv.conf when none are given.
func NewDNSResolver(nameservers []string) (*DNSResolver, error) {
	if len(nameservers) == 0 {
		conf, err := dns.ClientConfigFromFile(defaultResolvConf)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", defaultResolvConf, err)
		}
		for _, s := range conf.Servers {
			nameservers = append(nameservers, net.JoinHostPort(s, conf.Port))
		}
	}

	servers := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		if _, _, err := net.SplitHostPort(ns); err != nil {
			ns = net.JoinHostPort(ns, "53")
		}
		servers = append(servers, ns)
	}
	if len(servers) == 0 {
		return nil, errors.New("no nameservers configured")
	}

	return &DNSResolver{
		nameservers: servers,
		client: &dns.Client{
			Net:     "udp",
			Timeout: defaultDNSTimeout,
		},
	}, nil
}

// LookupA asks each nameserver in turn until one answers. NXDOMAIN is an
// answer with no addresses.
func (r *DNSResolver) LookupA(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	var errs []error
	for _, ns := range r.nameservers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, ns)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ns, err))
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, nil
		default:
			errs = append(errs, fmt.Errorf("%s: %s", ns, dns.RcodeToString[resp.Rcode]))
			continue
		}

		var ips []string
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				ips = append(ips, a.A.String())
			}
		}
		return ips, nil
	}
	return nil, fmt.Errorf("looking up %s: %w", name, errors.Join(errs...))
}
