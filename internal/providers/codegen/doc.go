// Package codegen forwards prompts to an external code-generation API.
//
// Two providers are supported: any OpenAI-compatible chat completions
// endpoint (over the shared resty client) and Anthropic's Messages API
// (over anthropic-sdk-go). New picks one from configuration and wraps it
// with prompt validation, logging and metrics.
package codegen
