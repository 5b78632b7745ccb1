// Package memory provides an in-process task.Store. It backs unit tests and
// single-process tools; it offers the same lease semantics as the PostgreSQL
// store but nothing survives a restart.
package memory
