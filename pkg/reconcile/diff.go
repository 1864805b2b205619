package reconcile

import (
	"github.com/acorn-io/dns-converge/pkg/model"
)

// ProviderRecord is an existing record in the provider's own representation.
// ID is whatever the provider uses to address the record for updates: a numeric
// id for some, the owner name for providers without separate ids.
type ProviderRecord struct {
	ID   string
	Name string
	Type model.RecordType
	Data string
}

// Normalizer translates between canonical records and a provider's wire form.
type Normalizer interface {
	// WireName is the record name the way the provider stores it in zone.
	WireName(r model.Record, z model.Zone) string
	// WireData is the record data the way the provider stores it.
	WireData(r model.Record, z model.Zone) string
	// CanonicalName maps an existing record's name back to a fully qualified name.
	CanonicalName(existing ProviderRecord, z model.Zone) string
	// Equal reports whether existing already carries r's data.
	Equal(r model.Record, z model.Zone, existing ProviderRecord) bool
}

// Change is a pending write. ExistingID is empty for creates.
type Change struct {
	Record     model.Record
	ExistingID string
}

// DiffResult partitions desired records into three disjoint sets.
type DiffResult struct {
	Unchanged []model.Record
	ToUpdate  []Change
	ToCreate  []Change
}

// Writes returns updates followed by creates.
func (d DiffResult) Writes() []Change {
	out := make([]Change, 0, len(d.ToUpdate)+len(d.ToCreate))
	out = append(out, d.ToUpdate...)
	return append(out, d.ToCreate...)
}

// Diff classifies each desired record against the zone's existing records.
// A record is unchanged if any existing record with the same type and name
// carries equal data. Otherwise the first same-name, same-type record is the
// one updated. With no such record it is created.
func Diff(z model.Zone, existing []ProviderRecord, desired []model.Record, n Normalizer) DiffResult {
	var result DiffResult

	for _, r := range desired {
		var (
			matched  bool
			equal    bool
			updateID string
		)
		for _, e := range existing {
			if e.Type != r.Type || n.CanonicalName(e, z) != r.Name {
				continue
			}
			if n.Equal(r, z, e) {
				equal = true
				break
			}
			if !matched {
				matched = true
				updateID = e.ID
			}
		}

		switch {
		case equal:
			result.Unchanged = append(result.Unchanged, r)
		case matched:
			result.ToUpdate = append(result.ToUpdate, Change{Record: r, ExistingID: updateID})
		default:
			result.ToCreate = append(result.ToCreate, Change{Record: r})
		}
	}

	return result
}
