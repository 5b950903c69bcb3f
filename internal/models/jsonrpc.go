package models

import "encoding/json"

// JSONRPCRequest represents a JSON-RPC 2.0 request object.
type JSONRPCRequest struct {
	// JSONRPC must be "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID is a unique identifier established by the client; echoed back in
	// the response. Omitted for notifications.
	ID interface{} `json:"id"`
	// Method is the name of the method to be invoked.
	Method string `json:"method"`
	// Params holds the method parameters. Parsing is deferred until the
	// method is known.
	Params json.RawMessage `json:"params"`
}

// JSONRPCErrorData carries application-specific error context inside a
// JSON-RPC error object.
type JSONRPCErrorData struct {
	// Filename is the file involved in the error, if applicable.
	Filename string `json:"filename,omitempty"`
	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`
	// Timestamp records when the error occurred.
	Timestamp string `json:"timestamp,omitempty"`
	// Details provides any other specific details about the error.
	Details string `json:"details,omitempty"`
	// Occurrences and Expected report an anchor count mismatch.
	Occurrences *int `json:"occurrences,omitempty"`
	Expected    *int `json:"expected,omitempty"`
	// Lines lists the matching line numbers when an anchor was ambiguous.
	Lines []int `json:"lines,omitempty"`
	// Suggestions lists ranked near-match candidates when an anchor was
	// absent. Always bounded.
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// JSONRPCError represents a JSON-RPC error object.
type JSONRPCError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    *JSONRPCErrorData `json:"data,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response object. Exactly one of
// Result and Error is set.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}
