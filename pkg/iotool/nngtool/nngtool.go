// Package nngtool exposes an IO-Tool over a mangos REQ/REP socket pair.
//
// A Server wraps any iotool.Tool and answers requests on a listen address.
// A Client dials that address and implements iotool.Tool itself, so a
// Gateway can drive a remote tool unchanged. Messages are JSON.
package nngtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// DefaultTimeout bounds one round trip.
const DefaultTimeout = 10 * time.Second

// envelope is the request message.
type envelope struct {
	Op      iotool.Operation `json:"op"`
	ID      string           `json:"id"`
	Content []byte           `json:"content,omitempty"`
}

// Client is a remote iotool.Tool. Calls are serialized because a REQ
// socket carries one request at a time.
type Client struct {
	mu      sync.Mutex
	sock    mangos.Socket
	timeout time.Duration
}

var _ iotool.Tool = (*Client)(nil)

// Dial connects to a Server. The dial is asynchronous: a server that is
// not up yet shows up as timeouts on individual calls.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create req socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionDialAsynch, true); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, timeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, timeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{sock: sock, timeout: timeout}, nil
}

// Close closes the socket.
func (c *Client) Close() error {
	return c.sock.Close()
}

func (c *Client) call(env envelope) (iotool.Response, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return iotool.Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sock.Send(data); err != nil {
		return iotool.Response{}, fmt.Errorf("send %s: %w", env.Op, err)
	}
	msg, err := c.sock.Recv()
	if err != nil {
		return iotool.Response{}, fmt.Errorf("receive %s reply: %w", env.Op, err)
	}

	var resp iotool.Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return iotool.Response{}, fmt.Errorf("decode %s reply: %w", env.Op, err)
	}
	return resp, nil
}

func (c *Client) Request(_ context.Context, id string) (iotool.Response, error) {
	return c.call(envelope{Op: iotool.OpRequest, ID: id})
}

func (c *Client) Store(_ context.Context, id string, content []byte) (iotool.Response, error) {
	return c.call(envelope{Op: iotool.OpStore, ID: id, Content: content})
}

func (c *Client) Drop(_ context.Context, id string) (iotool.Response, error) {
	return c.call(envelope{Op: iotool.OpDrop, ID: id})
}

// Server answers Client requests with a local tool.
type Server struct {
	tool   iotool.Tool
	sock   mangos.Socket
	logger logging.Logger
}

// Listen creates a REP socket bound to addr.
func Listen(addr string, tool iotool.Tool, logger logging.Logger) (*Server, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create rep socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Server{
		tool:   tool,
		sock:   sock,
		logger: logging.OrDefault(logger).With(logging.Component("nngtool"), logging.String("addr", addr)),
	}, nil
}

// Serve handles requests until ctx is done or the socket is closed.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.sock.SetOption(mangos.OptionRecvDeadline, 250*time.Millisecond); err != nil {
		return err
	}
	s.logger.Info("IO-Tool server started")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := s.sock.Recv()
		switch {
		case errors.Is(err, mangos.ErrRecvTimeout):
			continue
		case errors.Is(err, mangos.ErrClosed):
			return nil
		case err != nil:
			s.logger.Warn("receive failed", logging.Error(err))
			continue
		}

		reply, err := json.Marshal(s.handle(ctx, msg))
		if err != nil {
			s.logger.Error("encode reply failed", logging.Error(err))
			continue
		}
		if err := s.sock.Send(reply); err != nil {
			s.logger.Warn("send reply failed", logging.Error(err))
		}
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) iotool.Response {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return iotool.Response{Code: iotool.CodeInvalid, Message: "malformed request: " + err.Error()}
	}

	var resp iotool.Response
	var err error
	switch env.Op {
	case iotool.OpRequest:
		resp, err = s.tool.Request(ctx, env.ID)
	case iotool.OpStore:
		resp, err = s.tool.Store(ctx, env.ID, env.Content)
	case iotool.OpDrop:
		resp, err = s.tool.Drop(ctx, env.ID)
	default:
		return iotool.Response{Code: iotool.CodeInvalid, Message: fmt.Sprintf("unknown operation %q", env.Op)}
	}
	if err != nil {
		s.logger.Error("backing tool failed", logging.Operation(string(env.Op)), logging.TopologyID(env.ID), logging.Error(err))
		return iotool.Response{Code: iotool.CodeInternal, Message: err.Error()}
	}
	s.logger.Debug("handled request", logging.Operation(string(env.Op)), logging.TopologyID(env.ID), logging.ReturnCode(resp.Code))
	return resp
}

// Close closes the socket, ending Serve.
func (s *Server) Close() error {
	return s.sock.Close()
}
