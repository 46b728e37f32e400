package message

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// ParseVersionDetails decodes the result of MethodGetVersion.
func ParseVersionDetails(data json.RawMessage) (*VersionDetails, error) {
	var details VersionDetails
	if err := decode(MethodGetVersion, data, &details); err != nil {
		return nil, err
	}

	if details.Version == "" {
		return nil, parseError(MethodGetVersion, data, fmt.Errorf("missing version"))
	}

	return &details, nil
}

// ParseRunspaceDetails decodes the params of MethodRunspaceChanged.
func ParseRunspaceDetails(data json.RawMessage) (*RunspaceDetails, error) {
	var details RunspaceDetails
	if err := decode(MethodRunspaceChanged, data, &details); err != nil {
		return nil, err
	}

	return &details, nil
}

// ParseInvokeResult decodes the result of MethodInvokePSCommand.
// A null result decodes as an empty InvokeResult.
func ParseInvokeResult(data json.RawMessage) (*InvokeResult, error) {
	result := &InvokeResult{}

	if isNull(data) {
		return result, nil
	}

	if err := decode(MethodInvokePSCommand, data, result); err != nil {
		return nil, err
	}

	return result, nil
}

func decode(method string, data json.RawMessage, v any) error {
	if isNull(data) {
		return parseError(method, data, fmt.Errorf("empty payload"))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return parseError(method, data, err)
	}

	return nil
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseError(method string, data json.RawMessage, err error) error {
	return &errors.MessageParseError{Method: method, Data: data, Err: err}
}
