package lineage

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/parser"
)

// Extract builds the lineage of a parsed definition. errs are the parse
// errors that came with script. A nil script yields a Result holding only
// the errors.
func Extract(script *core.Script, errs []*parser.ParseError, opts Options) *Result {
	opts = opts.withDefaults()
	result := &Result{
		Edges:       []Edge{},
		Findings:    []Finding{},
		ParseErrors: errs,
	}
	if script == nil {
		opts.Logger.Debug("no syntax tree, skipping extraction", slog.Int("parse_errors", len(errs)))
		return result
	}

	r := newRun(script.Source, opts, result)
	stmts := flatten(script)
	r.extract(stmts)
	r.detect(stmts)
	return result
}

// ExtractSQL parses sql and extracts its lineage.
func ExtractSQL(sql string, opts Options) *Result {
	script, errs := parser.Parse(sql)
	return Extract(script, errs, opts)
}

// run is the state of one extraction. Nothing in it is shared with other runs.
type run struct {
	src    string
	opts   Options
	log    *slog.Logger
	fold   cases.Caser
	result *Result

	catalog map[string][]string // columns of tables created or declared in the definition
	batch   *scope              // CTEs visible to the rest of the current batch
	cur     *stmtInfo
}

func newRun(src string, opts Options, result *Result) *run {
	return &run{
		src:     src,
		opts:    opts,
		log:     opts.Logger,
		fold:    cases.Fold(),
		result:  result,
		catalog: make(map[string][]string),
		batch:   &scope{},
	}
}

// stmtInfo is a statement in pre-order with the context it appears in.
type stmtInfo struct {
	stmt  core.Stmt
	index int
	batch int
	owner *owner
}

// owner is the object whose body contains a statement.
type owner struct {
	name    *core.ObjectName
	trigger *core.ObjectName // table a trigger is defined on
}

// flatten lists every statement of script in source order, nested
// statements directly after the statement that contains them.
func flatten(script *core.Script) []*stmtInfo {
	var out []*stmtInfo
	var add func(stmts []core.Stmt, batch int, own *owner)
	add = func(stmts []core.Stmt, batch int, own *owner) {
		for _, stmt := range stmts {
			if stmt == nil {
				continue
			}
			out = append(out, &stmtInfo{stmt: stmt, index: len(out), batch: batch, owner: own})

			switch s := stmt.(type) {
			case *core.BlockStmt:
				add(s.Stmts, batch, own)
			case *core.IfStmt:
				add([]core.Stmt{s.Then, s.Else}, batch, own)
			case *core.WhileStmt:
				add([]core.Stmt{s.Body}, batch, own)
			case *core.TryCatchStmt:
				add(s.Try, batch, own)
				add(s.Catch, batch, own)
			case *core.CreateProcStmt:
				add(s.Body, batch, &owner{name: s.Name})
			case *core.CreateFunctionStmt:
				add(s.Body, batch, &owner{name: s.Name})
			case *core.CreateTriggerStmt:
				add(s.Body, batch, &owner{name: s.Name, trigger: s.Table})
			}
		}
	}
	for i, b := range script.Batches {
		add(b.Stmts, i, nil)
	}
	return out
}

func (r *run) extract(stmts []*stmtInfo) {
	batch := -1
	for _, info := range stmts {
		if info.batch != batch {
			batch = info.batch
			r.batch = &scope{}
		}
		r.statement(info)
	}
}

// statement extracts the edges of one statement. A panic is confined to the
// statement and recorded as a gap.
func (r *run) statement(info *stmtInfo) {
	r.cur = info
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("statement extraction failed",
				slog.Int("statement", info.index),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			r.gap(info.stmt.Pos().Line, ReasonInternalError, fmt.Sprint(p))
		}
	}()

	r.log.Debug("extracting statement",
		slog.Int("statement", info.index),
		slog.String("type", fmt.Sprintf("%T", info.stmt)),
		slog.Int("line", info.stmt.Pos().Line))

	switch s := info.stmt.(type) {
	case *core.SelectStmt:
		r.selectStmt(s)
	case *core.InsertStmt:
		r.insertStmt(s)
	case *core.UpdateStmt:
		r.updateStmt(s)
	case *core.MergeStmt:
		r.mergeStmt(s)
	case *core.DeleteStmt:
		r.deleteStmt(s)
	case *core.TruncateStmt:
		r.truncateStmt(s)
	case *core.CreateViewStmt:
		r.recordObject(s.Name)
		r.viewStmt(s)
	case *core.CreateProcStmt:
		r.recordObject(s.Name)
	case *core.CreateTriggerStmt:
		r.recordObject(s.Name)
	case *core.CreateFunctionStmt:
		r.recordObject(s.Name)
		if s.ReturnTable != "" {
			r.remember(&core.ObjectName{Name: s.ReturnTable}, columnDefNames(s.TableColumns))
		}
	case *core.ReturnStmt:
		if s.Select != nil {
			r.returnStmt(s)
		}
	case *core.DeclareCursorStmt:
		r.cursorStmt(s)
	case *core.DeclareStmt:
		for _, v := range s.Vars {
			if v.TableColumns != nil {
				r.remember(&core.ObjectName{Name: v.Name}, columnDefNames(v.TableColumns))
			}
		}
	case *core.CreateTableStmt:
		r.remember(s.Name, columnDefNames(s.Columns))
	}
}

func (r *run) recordObject(name *core.ObjectName) {
	if name != nil {
		r.result.Objects = append(r.result.Objects, name.String())
	}
}

// ---------- Targets ----------

// target is the table an edge writes to.
type target struct {
	schema string
	table  string
}

// targetOf names the table behind an object name. Temp tables and table
// variables have no schema; permanent tables default to DefaultSchema.
func (r *run) targetOf(name *core.ObjectName) target {
	if name == nil {
		return target{}
	}
	t := target{schema: name.Schema, table: name.Name}
	if t.schema == "" && !name.IsTemp() && !name.IsVariable() {
		t.schema = r.opts.DefaultSchema
	}
	return t
}

// ownerTarget is the target of result sets: the enclosing object, if any.
func (r *run) ownerTarget() target {
	if r.cur == nil || r.cur.owner == nil {
		return target{}
	}
	return r.targetOf(r.cur.owner.name)
}

// ---------- Local catalog ----------

// remember records the columns of a table created or declared in the
// definition so later statements can expand wildcards against it.
func (r *run) remember(name *core.ObjectName, columns []string) {
	if name == nil || len(columns) == 0 {
		return
	}
	t := r.targetOf(name)
	r.catalog[r.key(t.schema+"."+t.table)] = columns
}

// columnsOf returns the columns of a plain table, from the local catalog
// first and the resolver second.
func (r *run) columnsOf(ref TableReference) ([]string, bool) {
	if cols, ok := r.catalog[r.key(ref.Schema+"."+ref.Name)]; ok {
		return cols, true
	}
	if r.opts.Resolver == nil || ref.Kind != TablePlain {
		return nil, false
	}
	return r.opts.Resolver.ResolveColumns(ref.Schema, ref.Name)
}

func columnDefNames(defs []*core.ColumnDef) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

// ---------- Output helpers ----------

func (r *run) key(s string) string {
	return r.fold.String(s)
}

func (r *run) emit(e Edge) {
	e.StatementIndex = r.cur.index
	if e.SourceColumns == nil {
		e.SourceColumns = []SourceColumnRef{}
	}
	r.result.Edges = append(r.result.Edges, e)
}

func (r *run) gap(line int, reason, detail string) {
	r.log.Debug("coverage gap",
		slog.Int("statement", r.cur.index),
		slog.String("reason", reason),
		slog.String("detail", detail))
	r.result.Gaps = append(r.result.Gaps, CoverageGap{
		StatementIndex: r.cur.index,
		Line:           line,
		Reason:         reason,
		Detail:         detail,
	})
}
