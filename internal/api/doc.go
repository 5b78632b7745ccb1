// Package api serves the small HTTP surface of the worker: the run trigger
// used by external schedulers, a database health check and Prometheus
// metrics. Notes and jobs are created by the application that owns them,
// not over HTTP.
package api
