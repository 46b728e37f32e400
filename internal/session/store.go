package session

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// descriptorSchema describes the document a worker writes. Unknown keys are
// allowed so that older workers with extra fields still parse.
var descriptorSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"status"},
	Properties: map[string]*jsonschema.Schema{
		"status":            {Type: "string", Enum: []any{string(StatusStarted), string(StatusFailed)}},
		"reason":            {Types: []string{"string", "null"}},
		"detail":            {Types: []string{"string", "null"}},
		"runtimeVersion":    {Types: []string{"string", "null"}},
		"connectionChannel": {Types: []string{"string", "null"}},
		"servicePort":       {Types: []string{"number", "null"}},
		"servicePipeName":   {Types: []string{"string", "null"}},
	},
}

// Store reads, writes and deletes session descriptors.
type Store struct {
	log    *slog.Logger
	schema *jsonschema.Resolved
}

// NewStore creates a descriptor store.
func NewStore(log *slog.Logger) *Store {
	resolved, err := descriptorSchema.Resolve(nil)
	if err != nil {
		// The schema is a package constant; failing to resolve it is a programming error.
		panic(fmt.Sprintf("resolve session descriptor schema: %v", err))
	}

	return &Store{
		log:    log.With("component", "session_store"),
		schema: resolved,
	}
}

// Write serializes d to path. The directory must already exist.
func (s *Store) Write(path string, d *Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return &errors.DescriptorIOError{Op: "encode", Path: path, Err: err}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &errors.DescriptorIOError{Op: "write", Path: path, Err: err}
	}

	s.log.Debug("Wrote session file", "path", path, "status", d.Status)

	return nil
}

// Read loads the descriptor at path.
//
// Returns an error matching ErrDescriptorNotFound when the file is absent,
// DescriptorIOError when it cannot be read and DescriptorParseError when its
// content is not a well-formed descriptor.
func (s *Store) Read(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errors.ErrDescriptorNotFound, path)
		}

		return nil, &errors.DescriptorIOError{Op: "read", Path: path, Err: err}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &errors.DescriptorParseError{Path: path, Err: err}
	}

	if err := s.schema.Validate(raw); err != nil {
		return nil, &errors.DescriptorParseError{Path: path, Err: err}
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &errors.DescriptorParseError{Path: path, Err: err}
	}

	return &d, nil
}

// Delete removes the descriptor at path. A missing file is not an error.
func (s *Store) Delete(path string) error {
	err := os.Remove(path)
	if err == nil || stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}

	s.log.Debug("Failed to delete session file", "path", path, "error", err)

	return &errors.DescriptorIOError{Op: "delete", Path: path, Err: err}
}

// Exists reports whether a readable descriptor file is present at path.
func (s *Store) Exists(path string) bool {
	return readable(path)
}
