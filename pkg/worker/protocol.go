package worker

import "encoding/json"

// The worker protocol is one JSON object per line over the child's stdin and
// stdout, no embedded newlines, one response per request. stdout carries only
// protocol frames; all child diagnostics go to stderr.

// Request is a single RPC call to the worker child
type Request struct {
	Method string          `json:"method"` // ping, load, generate, unload
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the single-line reply to a request
type Response struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`  // generate result
	Error   string `json:"error,omitempty"` // failure detail
}

// LoadParams are the parameters of the load method
type LoadParams struct {
	Model     string `json:"model"`
	CtxTokens int    `json:"ctx_tokens"`
	Threads   int    `json:"threads"`
}

// GenerateParams are the parameters of the generate method
type GenerateParams struct {
	Prompt string `json:"prompt"`
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
