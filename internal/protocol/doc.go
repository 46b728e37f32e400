// Package protocol implements JSON-RPC request correlation and handler
// dispatch over a worker connection.
//
// The Controller handles:
//   - Sending requests with unique ULID ids and waiting for the matching response
//   - Sending notifications
//   - Routing inbound requests and notifications to registered handlers
//   - Holding inbound messages that arrive before their handler is registered
//   - Failing outstanding requests when the connection goes away
//
// Responses are matched to requests solely by id, so any number of requests
// may be outstanding and the worker may answer them in any order.
//
// Example usage:
//
//	controller := protocol.NewController(log, conn)
//	controller.OnNotification("powerShell/runspaceChanged", onRunspaceChanged)
//	controller.Start(ctx)
//
//	result, err := controller.SendRequest(ctx, "powerShell/getVersion", nil, 30*time.Second)
package protocol
