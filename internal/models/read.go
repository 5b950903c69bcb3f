package models

// ReadFileRequest represents a request to read a file. Callers typically use
// it to fetch current content before authoring an anchor.
type ReadFileRequest struct {
	// Name is the name of the file to read.
	Name string `json:"name"`
	// StartLine is the optional 1-based starting line for partial reads.
	StartLine int `json:"start_line,omitempty"`
	// EndLine is the optional 1-based ending line for partial reads.
	EndLine int `json:"end_line,omitempty"`
}

// RangeRequested echoes the line range that was served.
type RangeRequested struct {
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

// ReadFileResponse represents the response from a file read operation.
type ReadFileResponse struct {
	Content        string          `json:"content"`
	TotalLines     int             `json:"total_lines"`
	RangeRequested *RangeRequested `json:"range_requested,omitempty"`
}
