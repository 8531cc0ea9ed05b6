// Package core defines the syntax tree shared by the T-SQL parser and the
// lineage engine.
//
// Expressions, statements and table sources are closed unions: each is an
// interface with an unexported marker method, so only this package can add
// variants and every consumer switches over a known set of types.
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
package core
