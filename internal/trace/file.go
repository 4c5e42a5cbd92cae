package trace

import (
	"encoding/json"
	"fmt"
	"os"
)

// traceFile is the on-disk JSON shape produced by `querylens ingest` and
// accepted by `querylens analyze` and the HTTP API.
type traceFile struct {
	Queries []QueryRecord `json:"queries"`
}

// LoadFile reads a trace from a JSON file.
func LoadFile(path string) (*QueryTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON trace document.
func Decode(data []byte) (*QueryTrace, error) {
	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	return New(tf.Queries), nil
}

// SaveFile writes the trace to a JSON file.
func SaveFile(t *QueryTrace, path string) error {
	data, err := json.MarshalIndent(traceFile{Queries: t.Records()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}
	return nil
}
