// Package reconcile holds the provider-agnostic pieces of record reconciliation:
// finding the zone that owns a domain and diffing desired records against a
// zone's existing records.
package reconcile

import (
	"strings"

	"github.com/acorn-io/dns-converge/pkg/model"
)

// MatchZone returns the first zone whose name equals domain or is a parent of
// it. Zone names are compared case-sensitively after stripping one trailing dot.
func MatchZone(zones []model.Zone, domain string) (model.Zone, bool) {
	for _, z := range zones {
		name := model.TrimDot(z.Name)
		if domain == name || strings.HasSuffix(domain, "."+name) {
			return z, true
		}
	}
	return model.Zone{}, false
}

// ZoneRecords are the desired records owned by one zone.
type ZoneRecords struct {
	Zone    model.Zone
	Records []model.Record
}

// GroupByZone partitions records by owning zone, in order of first appearance.
// A record whose domain has no zone fails the whole batch.
func GroupByZone(zones []model.Zone, records []model.Record) ([]ZoneRecords, error) {
	var groups []ZoneRecords
	index := map[string]int{}

	for _, r := range records {
		z, ok := MatchZone(zones, r.Domain)
		if !ok {
			return nil, &model.DomainNotProvisionedError{Domain: r.Domain}
		}
		i, ok := index[z.ID]
		if !ok {
			i = len(groups)
			index[z.ID] = i
			groups = append(groups, ZoneRecords{Zone: z})
		}
		groups[i].Records = append(groups[i].Records, r)
	}

	return groups, nil
}
