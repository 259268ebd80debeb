package localserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrUnsupported is returned for an action the node does not provide.
var ErrUnsupported = errors.New("not supported on this node")

// Actions are the operations the socket exposes. A nil field makes the
// matching command reply with ErrUnsupported.
type Actions struct {
	Status   func(ctx context.Context) (any, error)
	Reload   func() error
	Snapshot func() error
	Shutdown func()
}

// Reply is one JSON reply line.
type Reply struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler executes socket commands.
type Handler struct {
	actions Actions
}

// NewHandler creates a Handler.
func NewHandler(actions Actions) *Handler {
	return &Handler{actions: actions}
}

// Execute runs one command line and writes its reply to w.
func (h *Handler) Execute(ctx context.Context, w io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])

	var (
		data any
		err  error
	)
	switch cmd {
	case "status":
		if h.actions.Status == nil {
			err = ErrUnsupported
			break
		}
		data, err = h.actions.Status(ctx)
	case "reload":
		err = call(h.actions.Reload)
		if err == nil {
			data = "configuration reloaded"
		}
	case "snapshot":
		err = call(h.actions.Snapshot)
		if err == nil {
			data = "snapshot taken"
		}
	case "shutdown":
		if h.actions.Shutdown == nil {
			err = ErrUnsupported
			break
		}
		data = "shutting down"
	default:
		err = errors.New("unknown command: " + cmd)
	}

	if err := writeReply(w, data, err); err != nil {
		return err
	}
	if cmd == "shutdown" && h.actions.Shutdown != nil {
		h.actions.Shutdown()
	}
	return nil
}

func call(fn func() error) error {
	if fn == nil {
		return ErrUnsupported
	}
	return fn()
}

func writeReply(w io.Writer, data any, err error) error {
	reply := Reply{OK: err == nil, Data: data}
	if err != nil {
		reply.Error = err.Error()
		reply.Data = nil
	}
	return json.NewEncoder(w).Encode(reply)
}
