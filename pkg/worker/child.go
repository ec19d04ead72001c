package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Backend performs the actual enrichment work inside the worker child
type Backend interface {
	Load(model string, ctxTokens, threads int) error
	Generate(prompt string) (string, error)
	Unload() error
}

// Serve runs the child side of the protocol: one JSON line per request from
// in, exactly one JSON line response per request to out, dispatch by method.
// EOF on in means the parent died and the loop returns. Nothing but protocol
// frames is ever written to out; diagnostics belong on errOut.
func Serve(in io.Reader, out io.Writer, backend Backend) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(Response{Success: false, Error: fmt.Sprintf("bad request: %v", err)}); encErr != nil {
				return fmt.Errorf("write response: %w", encErr)
			}
			continue
		}

		if err := enc.Encode(dispatch(&req, backend)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err() // nil on clean EOF, parent is gone either way
}

func dispatch(req *Request, backend Backend) Response {
	switch req.Method {
	case "ping":
		return Response{Success: true}

	case "load":
		var p LoadParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return Response{Success: false, Error: fmt.Sprintf("bad load params: %v", err)}
		}
		if err := backend.Load(p.Model, p.CtxTokens, p.Threads); err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		return Response{Success: true}

	case "generate":
		var p GenerateParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return Response{Success: false, Error: fmt.Sprintf("bad generate params: %v", err)}
		}
		text, err := backend.Generate(p.Prompt)
		if err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		return Response{Success: true, Text: text}

	case "unload":
		if err := backend.Unload(); err != nil {
			return Response{Success: false, Error: err.Error()}
		}
		return Response{Success: true}
	}
	return Response{Success: false, Error: fmt.Sprintf("unknown method %q", req.Method)}
}
