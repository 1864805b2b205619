package model

import (
	"fmt"
	"sort"
	"strings"
)

const (
	RecordTypeA     RecordType = "A"
	RecordTypeCname RecordType = "CNAME"
)

type RecordType string

func (rt RecordType) IsValid() error {
	switch rt {
	case RecordTypeA, RecordTypeCname:
		return nil
	}

	return fmt.Errorf("%w: unrecognized record type %q", ErrUnsupportedConfiguration, string(rt))
}

// Record is a desired DNS entry. Name is fully qualified within Domain,
// e.g. {Domain: "example.com", Name: "app.example.com"}.
type Record struct {
	Domain string     `json:"domain" yaml:"domain"`
	Name   string     `json:"name" yaml:"name"`
	Type   RecordType `json:"type" yaml:"type"`
	Data   string     `json:"data" yaml:"data"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s (domain %s)", r.Name, r.Type, r.Data, r.Domain)
}

// Declaration is the record payload keyed by name, as written in configuration.
type Declaration struct {
	Domain string     `json:"domain" yaml:"domain"`
	Type   RecordType `json:"type" yaml:"type"`
	Data   string     `json:"data" yaml:"data"`
}

// Records flattens a declaration map into records sorted by name.
func Records(declared map[string]Declaration) []Record {
	records := make([]Record, 0, len(declared))
	for name, d := range declared {
		records = append(records, Record{
			Domain: d.Domain,
			Name:   name,
			Type:   d.Type,
			Data:   d.Data,
		})
	}
	SortRecords(records)
	return records
}

// SortRecords orders records by name, then type.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].Type < records[j].Type
	})
}

// Zone is a hosted zone as reported by a provider.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrimDot strips a single trailing dot.
func TrimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
