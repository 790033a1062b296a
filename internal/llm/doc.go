// Package llm asks an OpenAI-compatible chat model to suggest a mail search
// query for an anchor. Suggestions are rate limited and cached per anchor.
package llm
