// Package task implements the note enrichment job queue: typed job payloads,
// the Store contract backing the queue, the backoff policy, the executors for
// each job type and the Runner that claims and finalizes jobs.
//
// Jobs are rows in a table. Workers hold no state between invocations; any
// number of Runner.Run calls may execute at once and coordinate only through
// Store.ClaimNext leases. Delivery is at-least-once, so every executor is
// written to tolerate running twice for the same job.
package task
