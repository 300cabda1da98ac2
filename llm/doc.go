// Package llm hosts the AI analyst: an OpenAI-compatible chat client,
// per-conversation sessions bound to a dataset summary, and response
// parsing for the structured analysis/code/suggestions payload.
package llm
