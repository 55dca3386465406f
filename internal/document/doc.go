// Package document is the in-memory model for rendered artifacts: dashboards,
// panels, targets, variables and inputs.
//
// A value is one of nil, bool, int64, float64, string, []any, *Map or RawExpr.
// Maps keep their keys in insertion order so that loading, transforming and
// writing an artifact never reorders it, which keeps build output stable
// between runs.
package document
