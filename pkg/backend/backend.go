package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/acorn-io/dns-converge/pkg/reconcile"
	"github.com/sirupsen/logrus"
)

// Backend is a provider adapter. Ensure makes the provider's zones carry every
// record, creating or updating as needed.
type Backend interface {
	Name() string
	Ensure(ctx context.Context, records []model.Record) error
}

// zoneAPI is what an adapter supplies to reuse the shared per-zone protocol.
type zoneAPI interface {
	reconcile.Normalizer
	ListZones(ctx context.Context) ([]model.Zone, error)
	ListRecords(ctx context.Context, z model.Zone) ([]reconcile.ProviderRecord, error)
	CreateRecord(ctx context.Context, z model.Zone, r model.Record) error
	UpdateRecord(ctx context.Context, z model.Zone, existingID string, r model.Record) error
}

// ensureZones fetches zones, groups records by owning zone and, one zone at a
// time, issues one write per record that is missing or carries stale data.
// A failure inside a zone stops the remaining writes for that zone only.
func ensureZones(ctx context.Context, name string, log *logrus.Entry, api zoneAPI, records []model.Record) error {
	zones, err := api.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("%s: listing zones: %w", name, err)
	}

	groups, err := reconcile.GroupByZone(zones, records)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	var errs []error
	// TODO: zones are independent and could be ensured concurrently.
	for _, g := range groups {
		if err := ensureZone(ctx, name, log.WithField("zone", model.TrimDot(g.Zone.Name)), api, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ensureZone(ctx context.Context, name string, log *logrus.Entry, api zoneAPI, g reconcile.ZoneRecords) error {
	existing, err := api.ListRecords(ctx, g.Zone)
	if err != nil {
		return fmt.Errorf("%s: listing records of zone %s: %w", name, g.Zone.Name, err)
	}

	diff := reconcile.Diff(g.Zone, existing, g.Records, api)
	log.Debugf("%d unchanged, %d to update, %d to create", len(diff.Unchanged), len(diff.ToUpdate), len(diff.ToCreate))

	for _, c := range diff.Writes() {
		entry := log.WithFields(logrus.Fields{
			"name": c.Record.Name,
			"type": c.Record.Type,
			"data": c.Record.Data,
		})
		if c.ExistingID != "" {
			entry.Info("updating DNS record")
			err = api.UpdateRecord(ctx, g.Zone, c.ExistingID, c.Record)
		} else {
			entry.Info("creating DNS record")
			err = api.CreateRecord(ctx, g.Zone, c.Record)
		}
		if err != nil {
			return &model.ProvisioningError{Adapter: name, Record: c.Record, Err: err}
		}
	}
	return nil
}
