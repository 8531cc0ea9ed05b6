// Package lineage extracts column-level lineage from parsed T-SQL.
//
// # Usage
//
//	result := lineage.ExtractSQL(procText, lineage.Options{Resolver: schema})
//	for _, e := range result.Edges {
//	    fmt.Println(e.TargetTable, e.TargetColumn, e.SourceColumns)
//	}
//
// Extraction works statement by statement. Each SELECT, INSERT, UPDATE,
// MERGE, DELETE and TRUNCATE statement produces edges from target columns to
// the source columns its values are read from. Table aliases are resolved
// through nested scopes; common table expressions stay visible for the rest
// of their batch.
//
// Independently of the edges, every statement is scanned for constructs
// whose data flow cannot be followed statically (EXEC of a string,
// sp_executesql, linked server access). These are reported as findings with
// a risk level.
//
// Nothing here returns an error for bad input. Parse failures, unresolved
// references and positional mismatches are all part of the Result.
package lineage
