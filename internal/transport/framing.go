package transport

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// MaxFrameSize is the largest message body accepted from the worker.
const MaxFrameSize = 64 * 1024 * 1024 // 64MB

const headerContentLength = "Content-Length"

// readFrame reads one Content-Length framed body.
//
// Returns io.EOF if the stream ends cleanly between frames. Any other failure
// is a FrameError.
func readFrame(r *bufio.Reader) ([]byte, error) {
	// Peek distinguishes a clean close from a truncated header block.
	if _, err := r.Peek(1); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, err
	}

	header, err := textproto.NewReader(r).ReadMIMEHeader()
	if err != nil {
		return nil, &errors.FrameError{Err: fmt.Errorf("read header: %w", err)}
	}

	raw := header.Get(headerContentLength)
	if raw == "" {
		return nil, &errors.FrameError{Err: fmt.Errorf("missing %s header", headerContentLength)}
	}

	length, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, &errors.FrameError{Err: fmt.Errorf("invalid %s %q", headerContentLength, raw)}
	}

	if length < 0 || length > MaxFrameSize {
		return nil, &errors.FrameError{Err: fmt.Errorf("%s %d out of range", headerContentLength, length)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &errors.FrameError{Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

// appendFrame appends the framed form of body to dst.
func appendFrame(dst, body []byte) []byte {
	dst = append(dst, headerContentLength...)
	dst = append(dst, ": "...)
	dst = strconv.AppendInt(dst, int64(len(body)), 10)
	dst = append(dst, "\r\n\r\n"...)

	return append(dst, body...)
}
