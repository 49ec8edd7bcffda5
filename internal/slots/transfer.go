package slots

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gmslots/internal/core"
)

//go:embed schema.cue
var recordSchema string

// SnapshotVersion is the export document version.
const SnapshotVersion = 1

// Format selects an import/export encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Snapshot is a full export of the slot collection.
type Snapshot struct {
	Version    int         `json:"version" yaml:"version"`
	Module     string      `json:"module" yaml:"module"`
	Digest     string      `json:"digest" yaml:"digest"`
	ExportedAt time.Time   `json:"exportedAt" yaml:"exportedAt"`
	Slots      []core.Slot `json:"slots" yaml:"slots"`
}

// Record is one incoming import record after schema validation.
// Nil fields were absent in the document.
type Record struct {
	// Source locates the record in the document ("[2]" or a mapping key).
	Source string

	Name          *string
	Enabled       *bool
	Code          *string
	Note          *string
	PlayersCanRun *bool

	// Problem is set when the record failed validation; it will be dropped.
	Problem string
}

// Dropped describes a record left out of an import.
type Dropped struct {
	Source string `json:"source"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// ImportReport tells the operator what an import did.
type ImportReport struct {
	Imported []string  `json:"imported"`
	Dropped  []Dropped `json:"dropped"`
}

// Export returns a full snapshot of the collection. It has no side effect.
func (s *Store) Export(ctx context.Context) (Snapshot, error) {
	list, err := s.All(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	digest, err := core.SnapshotDigest(list)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Version:    SnapshotVersion,
		Module:     s.module,
		Digest:     digest,
		ExportedAt: s.now().UTC(),
		Slots:      list,
	}, nil
}

// ReplaceAll overwrites the collection with records.
//
// Records are validated first: invalid records, empty names and repeated
// names (later occurrences) are dropped and reported. Missing fields are
// coerced (enabled=false, code=""). The survivors are committed in a single
// write.
func (s *Store) ReplaceAll(ctx context.Context, records []Record) (ImportReport, error) {
	report := ImportReport{Imported: []string{}, Dropped: []Dropped{}}
	seen := make(map[string]string)
	next := make([]core.Slot, 0, len(records))

	for _, r := range records {
		name := ""
		if r.Name != nil {
			name = core.CleanName(*r.Name)
		}
		switch {
		case r.Problem != "":
			report.Dropped = append(report.Dropped, Dropped{Source: r.Source, Name: name, Reason: r.Problem})
			continue
		case name == "":
			report.Dropped = append(report.Dropped, Dropped{Source: r.Source, Reason: "empty name"})
			continue
		}
		if first, dup := seen[core.NameKey(name)]; dup {
			report.Dropped = append(report.Dropped, Dropped{
				Source: r.Source,
				Name:   name,
				Reason: fmt.Sprintf("duplicate of %q", first),
			})
			continue
		}
		seen[core.NameKey(name)] = name

		sl := core.Slot{Name: name}
		if r.Enabled != nil {
			sl.Enabled = *r.Enabled
		}
		if r.Code != nil {
			sl.Code = *r.Code
		}
		if r.Note != nil {
			sl.Note = *r.Note
		}
		if r.PlayersCanRun != nil {
			sl.PlayersCanRun = core.Bool(*r.PlayersCanRun)
		}
		next = append(next, sl)
		report.Imported = append(report.Imported, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return ImportReport{}, err
	}
	ts := s.stamp(current)
	for i := range next {
		next[i].UpdatedAt = ts
	}
	if err := s.save(ctx, next); err != nil {
		return ImportReport{}, err
	}
	core.SortNames(report.Imported)
	return report, nil
}

// ParseImport decodes an import document.
//
// Accepted shapes: an export snapshot ({"slots": [...]}), an array of
// records, or a mapping of name to record. A document that cannot be decoded
// or has another shape is INVALID_IMPORT; individual bad records come back
// with Problem set.
func ParseImport(data []byte, format Format) ([]Record, error) {
	var doc any
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&doc)
	case FormatAuto, FormatYAML:
		// YAML is a superset of JSON.
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, core.NewError(core.CodeInvalidImport, "", fmt.Sprintf("unknown format %q", format))
	}
	if err != nil {
		return nil, core.WrapError(core.CodeInvalidImport, "", "cannot decode import document", err)
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	switch d := doc.(type) {
	case []any:
		return v.fromList(d), nil
	case map[string]any:
		if list, ok := d["slots"].([]any); ok {
			return v.fromList(list), nil
		}
		return v.fromMapping(d), nil
	default:
		return nil, core.NewError(core.CodeInvalidImport, "",
			fmt.Sprintf("import must be a list or mapping of slots, got %T", doc))
	}
}

// EncodeSnapshot renders a snapshot for export.
func EncodeSnapshot(snap Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(snap)
	case FormatAuto, FormatJSON:
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// validator checks raw records against the embedded CUE definition.
// A cue.Context is not safe for concurrent use; one validator per parse.
type validator struct {
	cctx *cue.Context
	def  cue.Value
}

func newValidator() (*validator, error) {
	cctx := cuecontext.New()
	schema := cctx.CompileString(recordSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile slot schema: %w", err)
	}
	return &validator{cctx: cctx, def: schema.LookupPath(cue.ParsePath("#Slot"))}, nil
}

func (v *validator) fromList(list []any) []Record {
	out := make([]Record, 0, len(list))
	for i, raw := range list {
		out = append(out, v.record("["+strconv.Itoa(i)+"]", "", raw))
	}
	return out
}

func (v *validator) fromMapping(m map[string]any) []Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, v.record(k, k, m[k]))
	}
	return out
}

// wireRecord is the JSON shape a validated record is decoded from.
type wireRecord struct {
	Enabled       *bool   `json:"enabled"`
	Code          *string `json:"code"`
	Note          *string `json:"note"`
	PlayersCanRun *bool   `json:"playersCanRun"`
}

// record validates one raw record. fallbackName is used when the record
// itself carries no name (mapping form).
func (v *validator) record(source, fallbackName string, raw any) Record {
	r := Record{Source: source}
	if fallbackName != "" {
		r.Name = &fallbackName
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		r.Problem = fmt.Sprintf("record must be a mapping, got %T", raw)
		return r
	}
	if n, ok := obj["name"].(string); ok && core.CleanName(n) != "" {
		r.Name = &n
	}
	b, err := json.Marshal(obj)
	if err != nil {
		r.Problem = fmt.Sprintf("record cannot be encoded: %v", err)
		return r
	}

	val := v.cctx.CompileBytes(b)
	if err := val.Err(); err != nil {
		r.Problem = cueerrors.Details(err, nil)
		return r
	}
	if err := v.def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		r.Problem = cueerrors.Details(err, nil)
		return r
	}

	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		r.Problem = fmt.Sprintf("record cannot be decoded: %v", err)
		return r
	}
	r.Enabled = w.Enabled
	r.Code = w.Code
	r.Note = w.Note
	r.PlayersCanRun = w.PlayersCanRun
	return r
}
