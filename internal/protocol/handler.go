package protocol

import (
	"context"
	"encoding/json"
)

// NotificationHandler handles an inbound notification.
//
// Notification handlers run one at a time, in arrival order.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// RequestHandler handles an inbound request from the worker.
//
// The returned value is marshaled into the response result. A returned
// *errors.ResponseError is sent with its code; any other error is sent as an
// internal error. Request handlers run concurrently.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// JSON-RPC error codes used in responses to the worker.
const (
	CodeMethodNotFound   int64 = -32601
	CodeInternalError    int64 = -32603
	CodeRequestCancelled int64 = -32800
)

// MethodCancelRequest is the notification that cancels an outstanding request.
const MethodCancelRequest = "$/cancelRequest"

// cancelParams is the payload of MethodCancelRequest.
type cancelParams struct {
	ID any `json:"id"`
}
