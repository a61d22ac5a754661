// Package labels loads and freezes the curated address attribution set used
// to classify post-exit fund flows. The registry is immutable for the life
// of a run and carries a content version so reports can state exactly which
// label snapshot produced them.
package labels

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// SchemaError reports a malformed label record. Schema violations abort
// loading; a registry is either fully valid or absent.
type SchemaError struct {
	Record int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("label record %d: field %s: %s", e.Record, e.Field, e.Reason)
}

// Registry is a frozen address label set. Lookups on addresses not in the
// set return the unknown label rather than an error.
type Registry struct {
	labels  map[string]domain.Label
	version string
}

// LoadFile loads a registry from a .csv or .json file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(path, ".json"):
		return LoadJSON(f)
	case strings.HasSuffix(path, ".csv"):
		return LoadCSV(f)
	default:
		return nil, fmt.Errorf("label file %s: unsupported format", path)
	}
}

type jsonLabel struct {
	Address     string `json:"address"`
	Category    string `json:"category"`
	Confidence  string `json:"confidence"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	RetrievedAt string `json:"retrieved_at"`
	Notes       string `json:"notes"`
}

// LoadJSON loads a registry from a JSON array of label records.
func LoadJSON(r io.Reader) (*Registry, error) {
	var records []jsonLabel
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode label json: %w", err)
	}

	labels := make([]domain.Label, 0, len(records))
	for _, rec := range records {
		labels = append(labels, domain.Label{
			Address:     rec.Address,
			Category:    domain.Category(rec.Category),
			Confidence:  domain.Confidence(rec.Confidence),
			Source:      rec.Source,
			SourceURL:   rec.SourceURL,
			RetrievedAt: rec.RetrievedAt,
			Notes:       rec.Notes,
		})
	}
	return build(labels)
}

// csv column order, header required.
var csvHeader = []string{"address", "category", "confidence", "source", "source_url", "retrieved_at", "notes"}

// LoadCSV loads a registry from CSV with the canonical header row.
func LoadCSV(r io.Reader) (*Registry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read label csv header: %w", err)
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return nil, &SchemaError{Record: 0, Field: want, Reason: fmt.Sprintf("header column %d is %q", i, header[i])}
		}
	}

	var labels []domain.Label
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read label csv: %w", err)
		}
		labels = append(labels, domain.Label{
			Address:     row[0],
			Category:    domain.Category(row[1]),
			Confidence:  domain.Confidence(row[2]),
			Source:      row[3],
			SourceURL:   row[4],
			RetrievedAt: row[5],
			Notes:       row[6],
		})
	}
	return build(labels)
}

// build validates every record, then freezes the set and computes its
// content version. Validation is strict: any bad record fails the load.
func build(labels []domain.Label) (*Registry, error) {
	byAddr := make(map[string]domain.Label, len(labels))
	for i, l := range labels {
		record := i + 1
		addr := strings.ToLower(strings.TrimSpace(l.Address))
		if !validAddress(addr) {
			return nil, &SchemaError{Record: record, Field: "address", Reason: fmt.Sprintf("%q is not a 0x-prefixed 20-byte hex address", l.Address)}
		}
		if !domain.ValidCategory(l.Category) {
			return nil, &SchemaError{Record: record, Field: "category", Reason: fmt.Sprintf("%q is not a known category", l.Category)}
		}
		if !domain.ValidConfidence(l.Confidence) {
			return nil, &SchemaError{Record: record, Field: "confidence", Reason: fmt.Sprintf("%q is not a known confidence", l.Confidence)}
		}
		if strings.TrimSpace(l.Source) == "" {
			return nil, &SchemaError{Record: record, Field: "source", Reason: "empty"}
		}
		if _, dup := byAddr[addr]; dup {
			return nil, &SchemaError{Record: record, Field: "address", Reason: fmt.Sprintf("%s appears twice", addr)}
		}
		l.Address = addr
		byAddr[addr] = l
	}

	return &Registry{
		labels:  byAddr,
		version: contentVersion(byAddr),
	}, nil
}

func validAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	for _, c := range addr[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// contentVersion hashes the sorted label set so the same snapshot always
// carries the same version string regardless of input file order.
func contentVersion(labels map[string]domain.Label) string {
	addrs := make([]string, 0, len(labels))
	for addr := range labels {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	h := sha256.New()
	for _, addr := range addrs {
		l := labels[addr]
		fmt.Fprintf(h, "%s|%s|%s|%s\n", l.Address, l.Category, l.Confidence, l.Source)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Lookup returns the label of an address, or the unknown label on a miss.
func (r *Registry) Lookup(addr string) domain.Label {
	if l, ok := r.labels[strings.ToLower(addr)]; ok {
		return l
	}
	return domain.UnknownLabel(strings.ToLower(addr))
}

// Has reports whether an address is in the curated set.
func (r *Registry) Has(addr string) bool {
	_, ok := r.labels[strings.ToLower(addr)]
	return ok
}

// Size is the number of curated labels in the snapshot.
func (r *Registry) Size() int {
	return len(r.labels)
}

// Version is the content hash of the snapshot, echoed into report selection
// metadata.
func (r *Registry) Version() string {
	return r.version
}
