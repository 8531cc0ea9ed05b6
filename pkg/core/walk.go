package core

// Walk traverses a tree depth-first and calls fn for each node, parent before
// children. If fn returns false, the children of that node are skipped.
//
// Nodes passed to fn are pointers to the AST types of this package. Nil
// children are never visited.
func Walk(node any, fn func(node any) bool) {
	if isNil(node) {
		return
	}
	if !fn(node) {
		return
	}
	walkChildren(node, fn)
}

//nolint:gocyclo // one case per node type
func walkChildren(node any, fn func(node any) bool) {
	switch n := node.(type) {
	// ---------- roots ----------
	case *Script:
		for _, b := range n.Batches {
			Walk(b, fn)
		}
	case *Batch:
		walkStmts(n.Stmts, fn)

	// ---------- queries ----------
	case *SelectStmt:
		Walk(n.With, fn)
		Walk(n.Body, fn)
		walkOrderBy(n.OrderBy, fn)
		walkExpr(n.Offset, fn)
		walkExpr(n.Fetch, fn)
	case *WithClause:
		for _, cte := range n.CTEs {
			Walk(cte, fn)
		}
	case *CTE:
		Walk(n.Select, fn)
	case *SelectBody:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *SelectCore:
		if n.Top != nil {
			walkExpr(n.Top.Count, fn)
		}
		for _, item := range n.Columns {
			Walk(item, fn)
		}
		Walk(n.Into, fn)
		Walk(n.From, fn)
		walkExpr(n.Where, fn)
		walkExprs(n.GroupBy, fn)
		walkExpr(n.Having, fn)
	case *SelectItem:
		walkExpr(n.Expr, fn)

	// ---------- table sources ----------
	case *FromClause:
		walkTable(n.Source, fn)
		for _, j := range n.Joins {
			Walk(j, fn)
		}
	case *Join:
		walkTable(n.Right, fn)
		walkExpr(n.Condition, fn)
	case *TableName:
		Walk(n.Name, fn)
	case *DerivedTable:
		Walk(n.Select, fn)
	case *ValuesTable:
		for _, row := range n.Rows {
			walkExprs(row, fn)
		}
	case *FuncTable:
		walkTable(n.Source, fn)
		Walk(n.Func, fn)
	case *OpenRowsetTable:
		walkExprs(n.Args, fn)
		Walk(n.Object, fn)
	case *JoinedTable:
		Walk(n.From, fn)

	// ---------- expressions ----------
	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *UnaryExpr:
		walkExpr(n.Expr, fn)
	case *FuncCall:
		walkExprs(n.Args, fn)
		walkOrderBy(n.WithinGroup, fn)
		if n.Over != nil {
			walkExprs(n.Over.PartitionBy, fn)
			walkOrderBy(n.Over.OrderBy, fn)
		}
	case *CaseExpr:
		walkExpr(n.Operand, fn)
		for _, w := range n.Whens {
			walkExpr(w.Condition, fn)
			walkExpr(w.Result, fn)
		}
		walkExpr(n.Else, fn)
	case *CastExpr:
		walkExpr(n.Expr, fn)
	case *ConvertExpr:
		walkExpr(n.Expr, fn)
		walkExpr(n.Style, fn)
	case *CoalesceExpr:
		walkExprs(n.Args, fn)
	case *NullIfExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *IifExpr:
		walkExpr(n.Cond, fn)
		walkExpr(n.Then, fn)
		walkExpr(n.Else, fn)
	case *InExpr:
		walkExpr(n.Expr, fn)
		walkExprs(n.Values, fn)
		Walk(n.Query, fn)
	case *BetweenExpr:
		walkExpr(n.Expr, fn)
		walkExpr(n.Low, fn)
		walkExpr(n.High, fn)
	case *IsNullExpr:
		walkExpr(n.Expr, fn)
	case *LikeExpr:
		walkExpr(n.Expr, fn)
		walkExpr(n.Pattern, fn)
		walkExpr(n.Escape, fn)
	case *CollateExpr:
		walkExpr(n.Expr, fn)
	case *ParenExpr:
		walkExpr(n.Expr, fn)
	case *SubqueryExpr:
		Walk(n.Select, fn)
	case *ExistsExpr:
		Walk(n.Select, fn)
	case *ColumnRef, *Literal, *Variable, *StarExpr, *ObjectName:
		// leaves

	// ---------- control flow ----------
	case *BlockStmt:
		walkStmts(n.Stmts, fn)
	case *IfStmt:
		walkExpr(n.Cond, fn)
		walkStmt(n.Then, fn)
		walkStmt(n.Else, fn)
	case *WhileStmt:
		walkExpr(n.Cond, fn)
		walkStmt(n.Body, fn)
	case *TryCatchStmt:
		walkStmts(n.Try, fn)
		walkStmts(n.Catch, fn)
	case *ReturnStmt:
		walkExpr(n.Value, fn)
		Walk(n.Select, fn)
	case *PrintStmt:
		walkExpr(n.Value, fn)
	case *RaiseStmt:
		walkExprs(n.Args, fn)
	case *SetVariableStmt:
		walkExpr(n.Value, fn)

	// ---------- data modification ----------
	case *InsertStmt:
		Walk(n.With, fn)
		Walk(n.Target, fn)
		Walk(n.Output, fn)
		for _, row := range n.Values {
			walkExprs(row, fn)
		}
		Walk(n.Select, fn)
		Walk(n.Exec, fn)
	case *UpdateStmt:
		Walk(n.With, fn)
		Walk(n.Target, fn)
		for _, s := range n.Sets {
			Walk(s, fn)
		}
		Walk(n.Output, fn)
		Walk(n.From, fn)
		walkExpr(n.Where, fn)
	case *SetClause:
		walkExpr(n.Value, fn)
	case *DeleteStmt:
		Walk(n.With, fn)
		Walk(n.Target, fn)
		Walk(n.Output, fn)
		Walk(n.From, fn)
		walkExpr(n.Where, fn)
	case *MergeStmt:
		Walk(n.With, fn)
		Walk(n.Target, fn)
		walkTable(n.Source, fn)
		walkExpr(n.On, fn)
		for _, w := range n.Whens {
			Walk(w, fn)
		}
		Walk(n.Output, fn)
	case *MergeWhen:
		walkExpr(n.Condition, fn)
		for _, s := range n.Sets {
			Walk(s, fn)
		}
		walkExprs(n.Values, fn)
	case *OutputClause:
		for _, item := range n.Columns {
			Walk(item, fn)
		}
		Walk(n.Into, fn)
	case *ExecStmt:
		Walk(n.Procedure, fn)
		for _, p := range n.Params {
			walkExpr(p.Value, fn)
		}
		walkExpr(n.DynamicSQL, fn)

	// ---------- definitions ----------
	case *CreateProcStmt:
		walkStmts(n.Body, fn)
	case *CreateViewStmt:
		Walk(n.Select, fn)
	case *CreateFunctionStmt:
		walkStmts(n.Body, fn)
	case *CreateTriggerStmt:
		walkStmts(n.Body, fn)
	case *DeclareStmt:
		for _, v := range n.Vars {
			walkExpr(v.Value, fn)
		}
	case *DeclareCursorStmt:
		Walk(n.Select, fn)
	}
}

func walkExpr(e Expr, fn func(node any) bool) {
	if e != nil {
		Walk(e, fn)
	}
}

func walkExprs(exprs []Expr, fn func(node any) bool) {
	for _, e := range exprs {
		walkExpr(e, fn)
	}
}

func walkStmt(s Stmt, fn func(node any) bool) {
	if s != nil {
		Walk(s, fn)
	}
}

func walkStmts(stmts []Stmt, fn func(node any) bool) {
	for _, s := range stmts {
		walkStmt(s, fn)
	}
}

func walkTable(t TableRef, fn func(node any) bool) {
	if t != nil {
		Walk(t, fn)
	}
}

func walkOrderBy(items []OrderByItem, fn func(node any) bool) {
	for _, item := range items {
		walkExpr(item.Expr, fn)
	}
}

// isNil reports whether node is nil or a typed nil pointer of a known type.
func isNil(node any) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *SelectStmt:
		return n == nil
	case *WithClause:
		return n == nil
	case *SelectBody:
		return n == nil
	case *SelectCore:
		return n == nil
	case *FromClause:
		return n == nil
	case *ObjectName:
		return n == nil
	case *OutputClause:
		return n == nil
	case *ExecStmt:
		return n == nil
	case *FuncCall:
		return n == nil
	}
	return false
}
