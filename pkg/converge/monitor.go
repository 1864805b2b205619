// Package converge decides whether live DNS matches the declared records and
// triggers provisioning when it does not.
package converge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

// SentinelName never resolves. Resolvers that answer NXDOMAIN with a
// catch-all address reveal that address when asked for it.
const SentinelName = "a.domain.that.will.never.resolve.so.we.can.determine.default.ip.com"

const (
	KindCheck  = "check"
	KindDeploy = "deploy"
)

// RuntimeStore persists facts learned at runtime across polls and restarts.
type RuntimeStore interface {
	VMIP(ctx context.Context) (string, error)
	SetVMIP(ctx context.Context, ip string) error
}

// Provisioner pushes records to the configured adapters.
type Provisioner interface {
	EnsureAll(ctx context.Context, records []model.Record, adapters map[string]map[string]string) error
}

// Reporter stores check results. It is optional.
type Reporter interface {
	SaveReport(ctx context.Context, kind string, resp *model.ConvergenceResponse) error
}

type Config struct {
	Hostname   string
	InstanceID string
	ProbePort  int
	HostsFile  string
	Records    map[string]model.Declaration
	Adapters   map[string]map[string]string
}

type Monitor struct {
	log         *logrus.Entry
	cfg         Config
	resolver    Resolver
	prober      Prober
	runtime     RuntimeStore
	provisioner Provisioner
	reporter    Reporter

	ready atomic.Bool
}

func NewMonitor(log *logrus.Entry, cfg Config, resolver Resolver, prober Prober, runtime RuntimeStore, provisioner Provisioner, reporter Reporter) *Monitor {
	return &Monitor{
		log:         log,
		cfg:         cfg,
		resolver:    resolver,
		prober:      prober,
		runtime:     runtime,
		provisioner: provisioner,
		reporter:    reporter,
	}
}

// Ready reports whether a previous Check saw every record resolving.
func (m *Monitor) Ready() bool {
	return m.ready.Load()
}

// Check is the post-deploy poll. Once it has returned ready it keeps doing so
// without touching the network.
func (m *Monitor) Check(ctx context.Context) (*model.ConvergenceResponse, error) {
	resp := m.newResponse()
	if len(m.cfg.Records) == 0 {
		return resp, nil
	}

	if m.ready.Load() {
		resp.Status = model.StatusReady
		return resp, nil
	}

	if err := m.resolve(ctx, resp, true); err != nil {
		return nil, err
	}

	pending, err := unresolved(resp)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		m.ready.Store(true)
		resp.Status = model.StatusReady
		return m.report(ctx, KindCheck, resp), nil
	}

	required := false
	resp.Required = &required
	resp.Status = model.StatusPending

	vmIP, err := m.runtime.VMIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading runtime vm ip: %w", err)
	}

	if vmIP == "" {
		learned, err := m.learnVMIP(ctx, resp)
		if err != nil {
			return nil, err
		}
		if learned {
			resp.Status = model.StatusRepeat
			return m.report(ctx, KindCheck, resp), nil
		}
	} else if m.cfg.HostsFile != "" {
		ok, err := hostsOverride(m.cfg.HostsFile, vmIP, m.cfg.Hostname)
		if err != nil {
			m.log.Debugf("reading %s: %v", m.cfg.HostsFile, err)
		} else if ok {
			m.log.Warnf("found entry for hostname %q in %s, treating DNS as ready", m.cfg.Hostname, m.cfg.HostsFile)
			resp.Status = model.StatusReady
			return m.report(ctx, KindCheck, resp), nil
		}
	}

	if err := m.provisioner.EnsureAll(ctx, pending, m.cfg.Adapters); err != nil {
		return nil, err
	}
	return m.report(ctx, KindCheck, resp), nil
}

// Deploy is the deploy-time check: it provisions whatever does not resolve
// yet and never short-circuits.
func (m *Monitor) Deploy(ctx context.Context) (*model.ConvergenceResponse, error) {
	resp := m.newResponse()
	if len(m.cfg.Records) == 0 {
		return resp, nil
	}

	if err := m.resolve(ctx, resp, false); err != nil {
		return nil, err
	}

	pending, err := unresolved(resp)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		resp.Status = model.StatusReady
		return m.report(ctx, KindDeploy, resp), nil
	}

	if err := m.provisioner.EnsureAll(ctx, pending, m.cfg.Adapters); err != nil {
		return nil, err
	}
	resp.Status = model.StatusPending
	return m.report(ctx, KindDeploy, resp), nil
}

func (m *Monitor) newResponse() *model.ConvergenceResponse {
	resp := model.NewConvergenceResponse()
	maps.Copy(resp.Declared, m.cfg.Records)
	return resp
}

// learnVMIP probes the hostname and, if it turns out to point here, records
// the address it resolves to.
func (m *Monitor) learnVMIP(ctx context.Context, resp *model.ConvergenceResponse) (bool, error) {
	if m.cfg.Hostname == "" || m.prober == nil {
		return false, nil
	}

	ours, err := m.prober.IsOurs(ctx, m.cfg.Hostname, m.cfg.ProbePort, m.cfg.InstanceID)
	if err != nil {
		url := ProbeURL(m.cfg.Hostname, m.cfg.ProbePort, m.cfg.InstanceID)
		if isTimeout(err) {
			m.log.Warnf("TIMEOUT while checking if instance is ours by calling %s, hostname is likely not resolving to the IP of this server: %v", url, err)
		} else {
			m.log.Warnf("error while checking if instance is ours by calling %s, hostname is likely not resolving to the IP of this server: %v", url, err)
		}
		return false, nil
	}
	if !ours {
		return false, nil
	}

	m.log.Infof("hostname %q is resolving to this instance", m.cfg.Hostname)
	ips := resp.Resolving[m.cfg.Hostname]
	if _, declared := m.cfg.Records[m.cfg.Hostname]; !declared || len(ips) == 0 {
		return false, fmt.Errorf("%w: could not find IP for resolved hostname %q, the hostname must be declared in records",
			model.ErrUnsupportedConfiguration, m.cfg.Hostname)
	}

	m.log.Infof("recording VM IP %s for future use", ips[0])
	if err := m.runtime.SetVMIP(ctx, ips[0]); err != nil {
		return false, fmt.Errorf("recording vm ip: %w", err)
	}
	return true, nil
}

// resolve looks up every declared name concurrently. Lookup failures are
// logged and count as no addresses.
func (m *Monitor) resolve(ctx context.Context, resp *model.ConvergenceResponse, filterSentinel bool) error {
	var sentinel string
	if filterSentinel {
		if ips := m.lookup(ctx, SentinelName); len(ips) > 0 {
			sentinel = ips[0]
			m.log.Debugf("resolver answers unknown names with %s", sentinel)
		}
	}

	var (
		g    errgroup.Group
		lock sync.Mutex
	)
	for name := range m.cfg.Records {
		name := name
		g.Go(func() error {
			ips := filterIP(m.lookup(ctx, name), sentinel)
			lock.Lock()
			defer lock.Unlock()
			resp.Resolving[name] = ips
			return nil
		})
	}
	return g.Wait()
}

func (m *Monitor) lookup(ctx context.Context, name string) []string {
	ips, err := m.resolver.LookupA(ctx, name)
	if err != nil {
		m.log.Warnf("error looking up hostname %q: %v", name, err)
		return []string{}
	}
	if ips == nil {
		ips = []string{}
	}
	return ips
}

func (m *Monitor) report(ctx context.Context, kind string, resp *model.ConvergenceResponse) *model.ConvergenceResponse {
	if m.reporter != nil {
		if err := m.reporter.SaveReport(ctx, kind, resp); err != nil {
			m.log.Warnf("saving %s report: %v", kind, err)
		}
	}
	return resp
}

func filterIP(ips []string, drop string) []string {
	if drop == "" {
		return ips
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if ip != drop {
			out = append(out, ip)
		}
	}
	return out
}

// unresolved returns the declared records whose first resolved address does
// not match, sorted by name. A CNAME is compared against the declared data of
// its target, one hop only, and the target must itself be a declared A record.
func unresolved(resp *model.ConvergenceResponse) ([]model.Record, error) {
	names := maps.Keys(resp.Declared)
	sort.Strings(names)

	var pending []model.Record
	for _, name := range names {
		d := resp.Declared[name]
		if err := d.Type.IsValid(); err != nil {
			return nil, fmt.Errorf("record %s: %w", name, err)
		}

		want := d.Data
		if d.Type == model.RecordTypeCname {
			target, ok := resp.Declared[d.Data]
			if !ok {
				return nil, fmt.Errorf("%w: CNAME target %q of %q must be declared in records",
					model.ErrUnsupportedConfiguration, d.Data, name)
			}
			if target.Type == model.RecordTypeCname {
				return nil, fmt.Errorf("%w: CNAME target %q of %q must be an A record",
					model.ErrUnsupportedConfiguration, d.Data, name)
			}
			want = target.Data
		}

		if ips := resp.Resolving[name]; len(ips) > 0 && ips[0] == want {
			continue
		}
		pending = append(pending, model.Record{Domain: d.Domain, Name: name, Type: d.Type, Data: d.Data})
	}
	return pending, nil
}
