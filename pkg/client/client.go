package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/abennett/ttt/pkg/messages"
)

var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrClosed           = errors.New("connection closed")
)

type Client struct {
	mu   *sync.Mutex
	user string

	conn     *websocket.Conn
	logger   *slog.Logger
	messages chan messages.Message

	Room messages.RoomState
}

func connectLoop(wsUrl string) (*websocket.Conn, error) {
	for range 3 {
		slog.Debug("attempting connection", "url", wsUrl)
		conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
		slog.Debug("connection attempted",
			"resp", resp,
			"error", err)
		if err != nil {
			if resp != nil {
				_, _ = io.Copy(os.Stderr, resp.Body)
			}
			return nil, err
		}
		if resp != nil && resp.StatusCode >= 300 && resp.StatusCode < 400 {
			wsUrl = resp.Header.Get("Location")
			slog.Debug("redirecting", "location", wsUrl)
			continue
		}
		defer resp.Body.Close()
		return conn, nil
	}

	return nil, ErrTooManyRedirects
}

func hostUrl(endpoint, room string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	var scheme string
	switch parsed.Scheme {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("%s is not a valid protocol", parsed.Scheme)
	}
	if room == "" {
		return "", errors.New("room name is required")
	}
	parsed.Scheme = scheme
	parsed, err = parsed.Parse("/rooms/" + url.PathEscape(room))
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

func newLogger(user string, logWriter io.Writer) *slog.Logger {
	if logWriter == nil {
		logWriter = io.Discard
	}
	h := slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h).With("user", user)
}

// New dials the room on host. Nothing is sent until Init.
func New(host, room, user string, logWriter io.Writer) (*Client, error) {
	logger := newLogger(user, logWriter)

	endpoint, err := hostUrl(host, room)
	if err != nil {
		return nil, err
	}
	logger.Debug("using endpoint", "endpoint", endpoint)

	conn, err := connectLoop(endpoint)
	if err != nil {
		return nil, err
	}

	return &Client{
		mu:       new(sync.Mutex),
		user:     user,
		logger:   logger,
		conn:     conn,
		messages: make(chan messages.Message, 1),
		Room: messages.RoomState{
			Rolls: []messages.RollResult{},
		},
	}, nil
}

// Init joins the room with an initial roll. An empty notation rolls the
// room's dice.
func (c *Client) Init(notation string) error {
	c.logger.Debug("running Init")
	if err := c.send(messages.RollRequest{User: c.user, Roll: notation}); err != nil {
		return err
	}
	go c.updateLoop(c.messages)
	return nil
}

// Roll replaces this user's roll in the room.
func (c *Client) Roll(notation string) error {
	return c.send(messages.RollRequest{User: c.user, Roll: notation})
}

// ToggleDone flips this user's done flag.
func (c *Client) ToggleDone() error {
	return c.send(messages.DoneRequest{User: c.user})
}

func (c *Client) send(payload any) error {
	b, err := messages.Encode(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err = c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("unable to write server: %w", err)
	}
	return nil
}

// State returns the latest room state received.
func (c *Client) State() messages.RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Room
}

// ReadUpdate blocks until the next room state arrives.
func (c *Client) ReadUpdate() (messages.RoomState, error) {
	c.logger.Debug("reading update")
	msg, ok := <-c.messages
	if !ok {
		return messages.RoomState{}, ErrClosed
	}
	switch payload := msg.Payload.(type) {
	case messages.RoomState:
		c.logger.Debug("room state message received", "version", payload.Version)
		return payload, nil
	default:
		return messages.RoomState{}, fmt.Errorf("%w: %T", messages.ErrUnknownMessageType, payload)
	}
}

func (c *Client) Close() error {
	c.logger.Debug("closing connection")
	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err != nil {
		c.logger.Error("close control message failed", "error", err)
		return fmt.Errorf("close control message failed: %w", err)
	}
	return nil
}

func (c *Client) updateLoop(updates chan messages.Message) {
	defer close(updates)
	c.logger.Debug("running update loop")
	for {
		t, b, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("read loop finished", "error", err)
			return
		}
		if t != websocket.BinaryMessage {
			continue
		}
		var msg messages.Message
		err = msgpack.Unmarshal(b, &msg)
		if err != nil {
			c.logger.Error("failed parsing room", "error", err, "payload", b)
			continue
		}
		c.logger.Debug("message received", "type", msg.Type)
		switch payload := msg.Payload.(type) {
		case messages.RoomState:
			c.logger.Debug("new room version", "version", payload.Version)
			c.mu.Lock()
			if payload.Version > c.Room.Version {
				c.Room = payload
			}
			c.mu.Unlock()
		default:
			c.logger.Warn("ignoring message", "type", fmt.Sprintf("%T", payload))
			continue
		}
		// Only the latest state matters to readers.
		select {
		case updates <- msg:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- msg
		}
	}
}
