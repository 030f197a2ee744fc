package validator

import (
	"fmt"

	"github.com/mirage-db/mirage/diff"
	"github.com/mirage-db/mirage/schema"
)

// DeviationReport lists how a live schema deviates from an expected
// snapshot. Missing entities are expected but absent live; Extra entities
// exist live but were not expected; Modified entities exist on both sides
// with textual differences, detailed per sub-entity.
type DeviationReport struct {
	Missing  []string            `json:"missing" yaml:"missing"`
	Extra    []string            `json:"extra" yaml:"extra"`
	Modified map[string][]string `json:"modified" yaml:"modified"`
}

// HasIssues reports whether any deviation was found.
func (r *DeviationReport) HasIssues() bool {
	return len(r.Missing) > 0 || len(r.Extra) > 0 || len(r.Modified) > 0
}

// Summary renders the report as human-readable lines.
func (r *DeviationReport) Summary() []string {
	var lines []string
	for _, name := range r.Missing {
		lines = append(lines, fmt.Sprintf("missing: %s", name))
	}
	for _, name := range r.Extra {
		lines = append(lines, fmt.Sprintf("unexpected: %s", name))
	}
	for name, details := range r.Modified {
		lines = append(lines, fmt.Sprintf("modified: %s", name))
		for _, d := range details {
			lines = append(lines, "  "+d)
		}
	}
	return lines
}

// Validate compares a live-introspected snapshot against the expected one.
// It runs the same three-way diff as migration generation with live as the
// previous side: entities the diff would add are missing live, entities it
// would remove are extra live.
func Validate(live, expected *schema.SchemaSnapshot) (*DeviationReport, error) {
	if live == nil {
		live = schema.NewSchemaSnapshot()
	}
	d, err := diff.Diff(live, expected)
	if err != nil {
		return nil, fmt.Errorf("compare schemas: %v", err)
	}

	report := &DeviationReport{Modified: map[string][]string{}}

	for _, name := range d.AddedTables {
		report.Missing = append(report.Missing, "table "+name)
	}
	for _, name := range d.RemovedTables {
		report.Extra = append(report.Extra, "table "+name)
	}
	for _, name := range d.AddedEdges {
		report.Missing = append(report.Missing, "edge "+name)
	}
	for _, name := range d.RemovedEdges {
		report.Extra = append(report.Extra, "edge "+name)
	}

	for name, td := range d.ModifiedTables {
		report.Modified[name] = tableDeviations(td)
	}
	for name, ed := range d.ModifiedEdges {
		report.Modified[name] = edgeDeviations(ed)
	}

	return report, nil
}

func tableDeviations(td *diff.TableDiff) []string {
	var details []string
	if td.DefinitionChanged() {
		details = append(details, fmt.Sprintf(
			"table definition mismatch: expected %q, live %q",
			td.Current.Definition, previousTableDefinition(td),
		))
	}
	details = append(details, subEntityDeviations(
		td.AddedColumns, td.RemovedColumns, td.ModifiedColumns,
		td.AddedIndexes, td.RemovedIndexes, td.ModifiedIndexes,
		td.AddedEvents, td.RemovedEvents, td.ModifiedEvents,
		td.Previous,
	)...)
	return details
}

func edgeDeviations(ed *diff.EdgeDiff) []string {
	var details []string
	if ed.DefinitionChanged() {
		live := ""
		if ed.Previous != nil {
			live = ed.Previous.Definition
		}
		details = append(details, fmt.Sprintf(
			"edge definition mismatch: expected %q, live %q",
			ed.Current.Definition, live,
		))
	}
	var prev *schema.TableSnapshot
	if ed.Previous != nil {
		prev = &schema.TableSnapshot{
			Columns: ed.Previous.Columns,
			Indexes: ed.Previous.Indexes,
			Events:  ed.Previous.Events,
		}
	}
	details = append(details, subEntityDeviations(
		ed.AddedColumns, ed.RemovedColumns, ed.ModifiedColumns,
		ed.AddedIndexes, ed.RemovedIndexes, ed.ModifiedIndexes,
		ed.AddedEvents, ed.RemovedEvents, ed.ModifiedEvents,
		prev,
	)...)
	return details
}

func subEntityDeviations(
	addedCols []schema.ColumnSnapshot, removedCols []string, modCols map[string]schema.ColumnSnapshot,
	addedIdxs []schema.IndexSnapshot, removedIdxs []string, modIdxs map[string]schema.IndexSnapshot,
	addedEvts []schema.EventSnapshot, removedEvts []string, modEvts map[string]schema.EventSnapshot,
	previous *schema.TableSnapshot,
) []string {
	var details []string

	for _, col := range addedCols {
		details = append(details, fmt.Sprintf("field %q is missing", col.Name))
	}
	for _, name := range removedCols {
		details = append(details, fmt.Sprintf("unexpected field %q", name))
	}
	for _, name := range schema.SortedColumnNames(modCols) {
		details = append(details, fmt.Sprintf(
			"field %q mismatch: expected %q, live %q",
			name, modCols[name].Definition, previousColumnDefinition(previous, name),
		))
	}

	for _, idx := range addedIdxs {
		details = append(details, fmt.Sprintf("index %q is missing", idx.Name))
	}
	for _, name := range removedIdxs {
		details = append(details, fmt.Sprintf("unexpected index %q", name))
	}
	for _, name := range schema.SortedIndexNames(modIdxs) {
		live := ""
		if previous != nil {
			live = previous.Indexes[name].Definition
		}
		details = append(details, fmt.Sprintf(
			"index %q mismatch: expected %q, live %q",
			name, modIdxs[name].Definition, live,
		))
	}

	for _, evt := range addedEvts {
		details = append(details, fmt.Sprintf("event %q is missing", evt.Name))
	}
	for _, name := range removedEvts {
		details = append(details, fmt.Sprintf("unexpected event %q", name))
	}
	for _, name := range schema.SortedEventNames(modEvts) {
		live := ""
		if previous != nil {
			live = previous.Events[name].Definition
		}
		details = append(details, fmt.Sprintf(
			"event %q mismatch: expected %q, live %q",
			name, modEvts[name].Definition, live,
		))
	}

	return details
}

func previousTableDefinition(td *diff.TableDiff) string {
	if td.Previous == nil {
		return ""
	}
	return td.Previous.Definition
}

func previousColumnDefinition(previous *schema.TableSnapshot, name string) string {
	if previous == nil {
		return ""
	}
	return previous.Columns[name].Definition
}
