package provision

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/acorn-io/dns-converge/pkg/backend"
	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// Orchestrator runs Ensure on every configured adapter at most once per
// distinct input.
type Orchestrator struct {
	log     *logrus.Entry
	factory backend.Factory
	cache   *Cache
}

func NewOrchestrator(log *logrus.Entry, factory backend.Factory) *Orchestrator {
	if factory == nil {
		factory = backend.New
	}
	return &Orchestrator{
		log:     log,
		factory: factory,
		cache:   NewCache(),
	}
}

// EnsureAll provisions records with every adapter whose settings are non-nil.
// Adapters run concurrently and do not stop each other; their errors are joined.
// An attempt is marked before it runs so a concurrent poll skips it, and is
// forgotten again if it fails so a later poll retries.
func (o *Orchestrator) EnsureAll(ctx context.Context, records []model.Record, adapters map[string]map[string]string) error {
	names := maps.Keys(adapters)
	sort.Strings(names)

	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		errs []error
	)
	fail := func(err error) {
		lock.Lock()
		defer lock.Unlock()
		errs = append(errs, err)
	}

	for _, name := range names {
		settings := adapters[name]
		if settings == nil {
			continue
		}
		log := o.log.WithField("adapter", name)

		key, err := Key(name, settings, records)
		if err != nil {
			fail(err)
			continue
		}
		if !o.cache.Mark(key) {
			log.Info("Skip provision as we already did previously in this process")
			continue
		}

		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("Provisioning %d DNS records using adapter", len(records))
			b, err := o.factory(name, o.log, settings)
			if err == nil {
				err = b.Ensure(ctx, records)
			}
			if err != nil {
				o.cache.Forget(key)
				fail(err)
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}
