package session

import (
	"fmt"
	"strconv"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// Status is the worker-reported startup result.
type Status string

const (
	// StatusStarted means the worker is listening on the advertised endpoint.
	StatusStarted Status = "started"
	// StatusFailed means the worker could not start; Reason and Detail say why.
	StatusFailed Status = "failed"
)

// Channel discriminates the transport advertised by the worker.
type Channel string

const (
	// ChannelPort is a TCP listener on the loopback interface.
	ChannelPort Channel = "port"
	// ChannelPipe is a named pipe (Windows) or Unix domain socket.
	ChannelPipe Channel = "pipe"
)

// Descriptor is the session file written by the worker.
//
// Wire format:
//
//	{
//	  "status": "started",
//	  "runtimeVersion": "7.4.1",
//	  "connectionChannel": "port",
//	  "servicePort": 4711
//	}
type Descriptor struct {
	Status            Status  `json:"status"`
	Reason            string  `json:"reason,omitempty"`
	Detail            string  `json:"detail,omitempty"`
	RuntimeVersion    string  `json:"runtimeVersion,omitempty"`
	ConnectionChannel Channel `json:"connectionChannel,omitempty"`
	ServicePort       int     `json:"servicePort,omitempty"`
	ServicePipeName   string  `json:"servicePipeName,omitempty"`
}

// Started reports whether the worker advertised a live endpoint.
func (d *Descriptor) Started() bool {
	return d.Status == StatusStarted
}

// Channel returns the effective transport. An empty channel with a port set
// is treated as a TCP port, matching older workers that omit the field.
func (d *Descriptor) Channel() Channel {
	if d.ConnectionChannel == "" && d.ServicePort > 0 {
		return ChannelPort
	}

	return d.ConnectionChannel
}

// Address returns the endpoint in the form used by logs and errors.
func (d *Descriptor) Address() string {
	switch d.Channel() {
	case ChannelPort:
		return "127.0.0.1:" + strconv.Itoa(d.ServicePort)
	case ChannelPipe:
		return d.ServicePipeName
	default:
		return ""
	}
}

// HandshakeError converts a failed descriptor into a typed error.
// Returns nil when the descriptor does not report a failure.
func (d *Descriptor) HandshakeError() *errors.HandshakeError {
	if d.Status != StatusFailed {
		return nil
	}

	return &errors.HandshakeError{
		Reason:         errors.ParseHandshakeReason(d.Reason),
		RawReason:      d.Reason,
		Detail:         d.Detail,
		RuntimeVersion: d.RuntimeVersion,
	}
}

// Validate checks that the descriptor is either started with a usable
// address or failed with a reason.
func (d *Descriptor) Validate() error {
	switch d.Status {
	case StatusStarted:
		switch d.Channel() {
		case ChannelPort:
			if d.ServicePort <= 0 || d.ServicePort > 65535 {
				return fmt.Errorf("invalid service port %d", d.ServicePort)
			}
		case ChannelPipe:
			if d.ServicePipeName == "" {
				return fmt.Errorf("pipe channel without a pipe name")
			}
		default:
			return fmt.Errorf("unknown connection channel %q", d.ConnectionChannel)
		}

		return nil

	case StatusFailed:
		if d.Reason == "" {
			return fmt.Errorf("failed status without a reason")
		}

		return nil

	default:
		return fmt.Errorf("unknown status %q", d.Status)
	}
}
