// Package domain contains the entities the enrichment jobs read and write:
// notes, categories and digest packs, plus the date ranges packs cover.
// It has no dependency on storage or the job queue.
package domain
