package lineage

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/sqllineage/pkg/parser"
)

// StatementKind is the kind of statement an edge was extracted from.
type StatementKind string

// StatementKind values.
const (
	KindSelect StatementKind = "Select"
	KindInsert StatementKind = "Insert"
	KindUpdate StatementKind = "Update"
	KindMerge  StatementKind = "Merge"
	KindDelete StatementKind = "Delete"
)

// TableKind says what a table reference points at.
type TableKind string

// TableKind values. Table-valued functions, OPENQUERY sources and VALUES
// lists are derived-like.
const (
	TablePlain   TableKind = "Plain"
	TableDerived TableKind = "DerivedSubquery"
	TableCTE     TableKind = "CommonTableExpression"
)

// MergeAction identifies the MERGE clause an edge came from.
type MergeAction string

// MergeAction values.
const (
	WhenMatchedUpdate    MergeAction = "WhenMatchedUpdate"
	WhenMatchedDelete    MergeAction = "WhenMatchedDelete"
	WhenNotMatchedInsert MergeAction = "WhenNotMatchedInsert"
)

// Merge condition types.
const (
	ConditionMatched            = "MATCHED"
	ConditionNotMatched         = "NOT MATCHED"
	ConditionNotMatchedBySource = "NOT MATCHED BY SOURCE"
	ConditionConditional        = "CONDITIONAL"
	ConditionDefault            = "DEFAULT"
)

// Coverage gap reasons.
const (
	ReasonInternalError           = "internal_error"
	ReasonColumnCountMismatch     = "column_count_mismatch"
	ReasonUnresolvedWildcard      = "unresolved_wildcard"
	ReasonUnresolvedTargetColumns = "unresolved_target_columns"
)

const (
	defaultSchema    = "dbo"
	defaultWorkers   = 4
	maxPatternLength = 120
	wildcardColumn   = "*"

	derivedTableName = "(subquery)"
	valuesTableName  = "(values)"
	pivotTableName   = "(pivot)"
)

// Transformation tags for values that are not bare columns.
const (
	transformLiteral       = "literal"
	transformVariable      = "variable"
	transformExpression    = "expression"
	transformSubquery      = "subquery"
	transformValues        = "VALUES(...)"
	transformDefaultValues = "DEFAULT VALUES"
	transformTruncate      = "TRUNCATE"
	transformCase          = "CASE...END"
	transformCast          = "CAST(...)"
	transformExists        = "EXISTS(...)"
	transformCollate       = "COLLATE"
	transformNextValue     = "NEXT VALUE FOR"
)

// TableReference is a table source bound in a query block.
type TableReference struct {
	Name     string    `json:"name"`
	Schema   string    `json:"schema,omitempty"`
	Database string    `json:"database,omitempty"`
	Server   string    `json:"server,omitempty"`
	Alias    string    `json:"alias,omitempty"`
	Kind     TableKind `json:"kind"`
	Line     int       `json:"line,omitempty"`
}

// Key returns the name the reference is known by in its scope.
func (t TableReference) Key() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// SourceColumnRef is a column read by an expression. The Resolved fields are
// set only when the qualifier (or, for unqualified columns, the single
// candidate table) was found in scope. Unresolved references are kept.
type SourceColumnRef struct {
	ColumnName       string    `json:"column"`
	TableAlias       string    `json:"table_alias,omitempty"`
	ResolvedDatabase string    `json:"database,omitempty"`
	ResolvedSchema   string    `json:"schema,omitempty"`
	ResolvedTable    string    `json:"table,omitempty"`
	ResolvedKind     TableKind `json:"kind,omitempty"`
	Ambiguous        bool      `json:"ambiguous,omitempty"`
}

// Resolved reports whether the reference was bound to a table.
func (r SourceColumnRef) Resolved() bool {
	return r.ResolvedTable != ""
}

// QualifiedName returns the column with whatever qualification is known:
// schema.table.column when resolved, alias.column or column otherwise.
func (r SourceColumnRef) QualifiedName() string {
	var parts []string
	switch {
	case r.ResolvedKind == TableDerived && strings.HasPrefix(r.ResolvedTable, "("):
		parts = append(parts, r.TableAlias)
	case r.Resolved():
		if r.ResolvedDatabase != "" {
			parts = append(parts, r.ResolvedDatabase)
		}
		if r.ResolvedSchema != "" {
			parts = append(parts, r.ResolvedSchema)
		}
		parts = append(parts, r.ResolvedTable)
	case r.TableAlias != "":
		parts = append(parts, r.TableAlias)
	}
	return strings.Join(append(parts, r.ColumnName), ".")
}

// Key returns the case-insensitive identity used to deduplicate sources.
func (r SourceColumnRef) Key() string {
	return keyOf(cases.Fold(), r)
}

func keyOf(fold cases.Caser, r SourceColumnRef) string {
	key := fold.String(r.QualifiedName())
	if !r.Resolved() && r.Ambiguous {
		key = "?" + key
	}
	return key
}

// DistinctColumns keeps the first reference of each case-insensitive
// qualified name, in order. Coverage counts must use the raw list.
func DistinctColumns(refs []SourceColumnRef) []SourceColumnRef {
	return distinct(cases.Fold(), refs)
}

func distinct(fold cases.Caser, refs []SourceColumnRef) []SourceColumnRef {
	out := make([]SourceColumnRef, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		k := keyOf(fold, ref)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Edge is one target column and the source columns its value is read from.
//
// SourceColumns is empty for literal, dynamic, wildcard and delete edges,
// and for expressions that read no column (GETDATE()). Transformation is
// empty exactly when the value is a bare reference to a single column.
//
// ConditionType is set on MERGE edges. Besides MATCHED, NOT MATCHED,
// CONDITIONAL and DEFAULT it can be NOT MATCHED BY SOURCE, for an unguarded
// WHEN NOT MATCHED BY SOURCE clause.
type Edge struct {
	StatementKind      StatementKind     `json:"statement_kind"`
	TargetSchema       string            `json:"target_schema,omitempty"`
	TargetTable        string            `json:"target_table,omitempty"`
	TargetColumn       string            `json:"target_column"`
	SourceColumns      []SourceColumnRef `json:"source_columns"`
	Transformation     string            `json:"transformation,omitempty"`
	IsWildcard         bool              `json:"is_wildcard,omitempty"`
	WildcardQualifier  string            `json:"wildcard_qualifier,omitempty"`
	IsLiteralSource    bool              `json:"is_literal_source,omitempty"`
	IsDynamicSource    bool              `json:"is_dynamic_source,omitempty"`
	IsDelete           bool              `json:"is_delete,omitempty"`
	MergeAction        MergeAction       `json:"merge_action,omitempty"`
	ConditionType      string            `json:"condition_type,omitempty"`
	AssignmentOperator string            `json:"assignment_operator,omitempty"`
	StatementIndex     int               `json:"statement_index"`
	Line               int               `json:"line"`
}

// Target returns the target as schema.table.column, omitting empty parts.
func (e Edge) Target() string {
	var parts []string
	if e.TargetSchema != "" {
		parts = append(parts, e.TargetSchema)
	}
	if e.TargetTable != "" {
		parts = append(parts, e.TargetTable)
	}
	return strings.Join(append(parts, e.TargetColumn), ".")
}

// FindingKind classifies a dynamic SQL construct.
type FindingKind string

// FindingKind values.
const (
	FindingExecString   FindingKind = "ExecString"
	FindingSpExecuteSQL FindingKind = "SpExecuteSql"
	FindingSpExecute    FindingKind = "SpExecute"
	FindingExecVariable FindingKind = "ExecVariable"
	FindingOpenQuery    FindingKind = "OpenQuery"
	FindingInsertExec   FindingKind = "InsertExec"
)

// Finding is a construct whose data flow cannot be followed statically.
type Finding struct {
	Kind           FindingKind `json:"kind"`
	Pattern        string      `json:"pattern"`
	Line           int         `json:"line"`
	Column         int         `json:"column"`
	Risk           RiskLevel   `json:"risk"`
	StatementIndex int         `json:"statement_index"`
}

// CoverageGap records a construct that was recognized but could not be fully
// traced. Gaps are not errors.
type CoverageGap struct {
	StatementIndex int    `json:"statement_index"`
	Line           int    `json:"line"`
	Reason         string `json:"reason"`
	Detail         string `json:"detail,omitempty"`
}

// Result is the lineage of one definition. It is built by a single run and
// not modified afterwards.
type Result struct {
	Name        string               `json:"name,omitempty"`
	Objects     []string             `json:"objects,omitempty"`
	Edges       []Edge               `json:"edges"`
	Findings    []Finding            `json:"findings"`
	ParseErrors []*parser.ParseError `json:"parse_errors,omitempty"`
	Gaps        []CoverageGap        `json:"gaps,omitempty"`
}

// HasDynamicSQL reports whether any dynamic SQL was found.
func (r *Result) HasDynamicSQL() bool {
	return len(r.Findings) > 0
}

// HighestRisk returns the highest risk among the findings, RiskLow if there
// are none.
func (r *Result) HighestRisk() RiskLevel {
	highest := RiskLow
	for _, f := range r.Findings {
		if f.Risk > highest {
			highest = f.Risk
		}
	}
	return highest
}

// Failed reports whether extraction failed: no edges and parse errors.
// No edges without parse errors is a valid outcome (DDL only).
func (r *Result) Failed() bool {
	return len(r.Edges) == 0 && len(r.ParseErrors) > 0
}

// DistinctSources returns every source column read by any edge, first
// occurrence first.
func (r *Result) DistinctSources() []SourceColumnRef {
	var all []SourceColumnRef
	for _, e := range r.Edges {
		all = append(all, e.SourceColumns...)
	}
	return DistinctColumns(all)
}

// ColumnResolver supplies column names for tables. It is used to expand
// SELECT *, to fill in INSERT target columns and to narrow the candidates of
// unqualified columns. ok is false when the table is unknown.
type ColumnResolver interface {
	ResolveColumns(schema, table string) (columns []string, ok bool)
}

// ColumnResolverFunc adapts a function to ColumnResolver.
type ColumnResolverFunc func(schema, table string) ([]string, bool)

// ResolveColumns implements ColumnResolver.
func (f ColumnResolverFunc) ResolveColumns(schema, table string) ([]string, bool) {
	return f(schema, table)
}

// Options configures extraction.
type Options struct {
	// DefaultSchema is assumed for unqualified permanent tables. Defaults to dbo.
	DefaultSchema string
	// Resolver supplies table columns. Optional.
	Resolver ColumnResolver
	// Logger receives debug output. Optional.
	Logger *slog.Logger
	// Workers bounds the parallelism of ExtractAll. Defaults to 4.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.DefaultSchema == "" {
		o.DefaultSchema = defaultSchema
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	return o
}
