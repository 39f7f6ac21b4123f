// Package translation sends batches of masked text to a language model and
// turns the reply back into one translated string per input. It owns request
// construction, response validation, error classification, timeouts and the
// circuit breaker; the providers (OpenAI, Gemini, Ollama) only move bytes.
package translation
