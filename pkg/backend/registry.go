package backend

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Constructor builds an adapter from its settings.
type Constructor func(log *logrus.Entry, settings map[string]string) (Backend, error)

// Factory builds the named adapter. New is the production Factory.
type Factory func(name string, log *logrus.Entry, settings map[string]string) (Backend, error)

var constructors = map[string]Constructor{
	Route53Name:      NewRoute53,
	DigitalOceanName: NewDigitalOcean,
	DNSimpleName:     NewDNSimple,
	UltraDNSName:     NewUltraDNS,
	HTTPName:         NewHTTP,
}

// IsRegistered reports whether name is a known adapter.
func IsRegistered(name string) bool {
	_, ok := constructors[name]
	return ok
}

// Names returns the known adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New constructs the named adapter.
func New(name string, log *logrus.Entry, settings map[string]string) (Backend, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported DNS adapter %q (known: %v)", name, Names())
	}
	return c(log.WithField("adapter", name), settings)
}

func requireSettings(adapter string, settings map[string]string, keys ...string) error {
	for _, k := range keys {
		if settings[k] == "" {
			return fmt.Errorf("%s: missing required setting %q", adapter, k)
		}
	}
	return nil
}
