// Package gemini implements the generation interfaces on Google's Gemini
// API.
//
// A single Client owns the genai connection and an outbound rate limiter;
// Classifier, Embedder, Captioner and Summarizer are thin adapters over it,
// each bound to its own model name. Prompts are text/template files
// embedded from prompts/.
//
// The adapters do not retry. Every error is returned to the job runner,
// which reschedules the job with backoff; errors are wrapped with the
// generation sentinels so callers can tell a blocked prompt from a
// malformed response or a transport failure.
package gemini
