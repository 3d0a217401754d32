package server

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/abennett/ttt/pkg"
	"github.com/abennett/ttt/pkg/messages"
)

const (
	PingInterval = 5 * time.Second
	writeBuffer  = 8
)

type userSession struct {
	wg      *sync.WaitGroup
	logger  *slog.Logger
	name    string
	writeCh chan []byte
}

// Room is a shared table. Every player's roll is executed by the roller and
// the room state is pushed to everyone connected.
type Room struct {
	mu                *sync.Mutex
	logger            *slog.Logger
	roller            *pkg.Roller
	maxNotationLength int
	userSessions      map[string]userSession

	Version int
	Name    string
	Dice    string
	Rolls   map[string]messages.RollResult
}

func (r *Room) RunSession(ctx context.Context, conn *websocket.Conn) {
	_, b, err := conn.ReadMessage()
	if err != nil {
		r.logger.Error("failed to read initial message", "error", err)
		return
	}

	var msg messages.Message
	if err = msgpack.Unmarshal(b, &msg); err != nil {
		r.logger.Error("failed to parse initial message", "error", err, "payload", string(b))
		return
	}

	req, ok := msg.Payload.(messages.RollRequest)
	if !ok || req.User == "" {
		r.logger.Error("initial message was incorrect", "type", msg.Type, "payload", string(b))
		return
	}

	name := req.User
	r.logger.Debug("starting a session", "user", name)
	session := userSession{
		wg:      new(sync.WaitGroup),
		logger:  r.logger.With("user", req.User),
		name:    req.User,
		writeCh: make(chan []byte, writeBuffer),
	}

	r.startUserSession(ctx, session, conn)

	if err = r.Update(r.roll(req)); err != nil {
		r.logger.Error("initial roll failed", "error", err)
	}

	session.wg.Wait()
	r.stopUserSession(session)
	r.logger.Info("closing session", "user", name)
}

// roll executes a roll request. Engine failures are reported back to the
// player in the result rather than closing the session.
func (r *Room) roll(req messages.RollRequest) messages.RollResult {
	notation := req.Roll
	if notation == "" {
		notation = r.Dice
	}
	result := messages.RollResult{
		User:     req.User,
		Notation: notation,
	}
	if len(notation) > r.maxNotationLength {
		result.Error = fmt.Sprintf("roll is longer than %d characters", r.maxNotationLength)
		return result
	}
	res, err := r.roller.RollNotation(notation, pkg.DieOptions{})
	if err != nil {
		r.logger.Debug("roll rejected", "user", req.User, "notation", notation, "error", err)
		result.Error = err.Error()
		return result
	}
	result.Result = res.Rolls[0].Total
	result.Dice = res.Rolls[0].Dice
	return result
}

func (r *Room) startUserSession(ctx context.Context, session userSession, conn *websocket.Conn) {
	r.mu.Lock()
	r.userSessions[session.name] = session
	r.mu.Unlock()

	// Add to the waitGroup outside of goroutines here to avoid race condition on Add
	ctx, cancel := context.WithCancel(ctx)
	session.wg.Add(2)
	go r.userReadLoop(cancel, session, conn)
	go r.userWriteLoop(ctx, session, conn)
}

func (r *Room) stopUserSession(session userSession) {
	r.mu.Lock()
	delete(r.userSessions, session.name)
	r.mu.Unlock()
}

func (r *Room) userReadLoop(cancel func(), session userSession, conn *websocket.Conn) {
	defer cancel()
	defer session.wg.Done()
	defer session.logger.Debug("closing read loop")

	for {
		t, b, err := conn.ReadMessage()
		if closeErr, ok := err.(*websocket.CloseError); ok {
			if closeErr.Code == websocket.CloseNormalClosure {
				session.logger.Info("close message received")
				return
			}
		}
		if err != nil {
			r.logger.Error("failure in user read loop", "error", err)
			return
		}

		switch t {
		case websocket.CloseMessage:
			session.logger.Info("close message received")
			return
		case websocket.BinaryMessage:
			session.logger.Debug("binary message received")
			if err := r.HandleBinaryMessage(session.name, b); err != nil {
				session.logger.Error("failed handling message", "error", err)
			}
		}
	}
}

// HandleBinaryMessage applies a message sent by user after joining.
func (r *Room) HandleBinaryMessage(user string, b []byte) error {
	var msg messages.Message
	err := msgpack.Unmarshal(b, &msg)
	if err != nil {
		return fmt.Errorf("%w: %w", messages.ErrMessageInvalid, err)
	}

	switch payload := msg.Payload.(type) {
	case messages.DoneRequest:
		payload.User = user
		return r.Update(payload)
	case messages.RollRequest:
		payload.User = user
		return r.Update(r.roll(payload))
	default:
		return fmt.Errorf("%w: %T", messages.ErrUnknownMessageType, payload)
	}
}

func (r *Room) userWriteLoop(ctx context.Context, session userSession, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer session.wg.Done()
	defer session.logger.Debug("closing write loop")
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			session.logger.Debug("write loop is done")
			return
		case b := <-session.writeCh:
			session.logger.Debug("writing message")
			err := conn.WriteMessage(websocket.BinaryMessage, b)
			if err != nil {
				r.logger.Error("write failed", "error", err)
				return
			}
		case <-ticker.C:
			session.logger.Debug("writing ping message")
			err := conn.WriteMessage(websocket.PingMessage, []byte{})
			if err == websocket.ErrCloseSent {
				session.logger.Debug("error close was sent")
				return
			}
			if err != nil {
				session.logger.Error("ping failed", "error", err)
				return
			}
		}
	}
}

func (r *Room) Update(update any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch u := update.(type) {
	case messages.RollResult:
		u.IsDone = r.Rolls[u.User].IsDone
		r.Rolls[u.User] = u
		r.logger.Debug("added roll", "active_sessions", len(r.userSessions), "user", u.User)
	case messages.DoneRequest:
		roll, ok := r.Rolls[u.User]
		if !ok {
			return fmt.Errorf("no roll for user %q", u.User)
		}
		roll.IsDone = !roll.IsDone
		r.Rolls[u.User] = roll
		r.logger.Debug("toggled done", "user", u.User, "done", roll.IsDone)
	default:
		err := fmt.Errorf("unknown update type: %T", update)
		r.logger.Error(err.Error())
		return err
	}

	r.Version++

	b, err := messages.Encode(r.ToState())
	if err != nil {
		r.logger.Error("failed marshalling room", "error", err)
		return err
	}

	for _, us := range r.userSessions {
		r.logger.Debug("pushing update", "user", us.name, "version", r.Version)
		select {
		case us.writeCh <- b:
		default:
			us.logger.Warn("dropping update for slow session", "version", r.Version)
		}
	}
	return nil
}

// ToState must be called with r.mu held.
func (r *Room) ToState() messages.RoomState {
	rolls := make([]messages.RollResult, 0, len(r.Rolls))
	for _, roll := range r.Rolls {
		rolls = append(rolls, roll)
	}
	slices.SortFunc(rolls, func(a, b messages.RollResult) int {
		if c := cmp.Compare(b.Result, a.Result); c != 0 {
			return c
		}
		return cmp.Compare(a.User, b.User)
	})
	return messages.RoomState{
		Version: r.Version,
		Name:    r.Name,
		Dice:    r.Dice,
		Rolls:   rolls,
	}
}
