package converge

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNSServer serves A answers from zone and NXDOMAIN for everything else.
func startDNSServer(t *testing.T, zone map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(req)
			q := req.Question[0]
			ips, ok := zone[q.Name]
			if !ok {
				m.SetRcode(req, dns.RcodeNameError)
			}
			for _, ip := range ips {
				m.Answer = append(m.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP(ip),
				})
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolverLookupA(t *testing.T) {
	addr := startDNSServer(t, map[string][]string{
		"app.example.com.": {"203.0.113.5", "203.0.113.6"},
	})
	r, err := NewDNSResolver([]string{addr})
	require.NoError(t, err)

	ips, err := r.LookupA(context.Background(), "app.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6"}, ips)

	ips, err = r.LookupA(context.Background(), "missing.example.com")
	require.NoError(t, err)
	assert.Empty(t, ips)
}

func TestDNSResolverFallsThrough(t *testing.T) {
	// Nothing listens on the first address.
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	require.NoError(t, dead.Close())

	addr := startDNSServer(t, map[string][]string{"app.example.com.": {"203.0.113.5"}})
	r, err := NewDNSResolver([]string{deadAddr, addr})
	require.NoError(t, err)

	ips, err := r.LookupA(context.Background(), "app.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.5"}, ips)
}

func TestNewDNSResolverAddsPort(t *testing.T) {
	r, err := NewDNSResolver([]string{"192.0.2.53"})
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.53:53"}, r.nameservers)
}
