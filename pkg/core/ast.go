package core

import "github.com/leapstack-labs/sqllineage/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode() // Marker method to distinguish statements
}

// TableRef is a marker interface for table sources in FROM, MERGE USING, etc.
type TableRef interface {
	Node
	tableRefNode()
}

// NodeInfo carries the source span of a node. Embedded by every node type.
type NodeInfo struct {
	Span token.Span
}

// Pos implements Node.
func (n *NodeInfo) Pos() token.Position { return n.Span.Start }

// End implements Node.
func (n *NodeInfo) End() token.Position { return n.Span.End }

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span { return n.Span }

// Script is the root of a parsed T-SQL text.
type Script struct {
	NodeInfo
	Source  string
	Batches []*Batch
}

// Batch is a run of statements between GO separators.
type Batch struct {
	NodeInfo
	Stmts []Stmt
}

// ObjectName is a multipart name: [server.][database.][schema.]name.
type ObjectName struct {
	NodeInfo
	Server   string
	Database string
	Schema   string
	Name     string
}

// String returns the name as written, without brackets.
func (o *ObjectName) String() string {
	if o == nil {
		return ""
	}
	s := o.Name
	if o.Schema != "" {
		s = o.Schema + "." + s
	}
	if o.Database != "" {
		if o.Schema == "" {
			s = "." + s
		}
		s = o.Database + "." + s
	}
	if o.Server != "" {
		s = o.Server + "." + s
	}
	return s
}

// IsTemp reports whether the name is a #temp or ##global temp table.
func (o *ObjectName) IsTemp() bool {
	return o != nil && len(o.Name) > 0 && o.Name[0] == '#'
}

// IsVariable reports whether the name is a @table variable.
func (o *ObjectName) IsVariable() bool {
	return o != nil && len(o.Name) > 0 && o.Name[0] == '@'
}
