// Package llm provides the chat-completion capability shared by the
// hallucination scrubber, translator, and reviewer. The client retries
// transient provider failures with capped exponential backoff and classifies
// quota exhaustion as a terminal, non-retryable condition.
package llm
