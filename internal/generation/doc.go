// Package generation defines the contracts for the AI collaborators the
// enrichment jobs call: note classification, text embedding, handwriting
// captioning and digest summarization. Implementations live under
// internal/platform (Gemini); the job executors only see these interfaces.
package generation
