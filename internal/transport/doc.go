// Package transport opens the connection advertised by a session descriptor
// and frames JSON-RPC messages over it.
//
// Messages use the LSP base protocol: a Content-Length header block followed
// by a UTF-8 JSON body. Envelopes are encoded and decoded with the
// go-sdk jsonrpc package.
//
//	conn, err := transport.Dial(ctx, log, desc)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	messages, errs := conn.ReadMessages(ctx)
package transport
