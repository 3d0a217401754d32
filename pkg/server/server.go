package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/abennett/ttt/pkg"
	"github.com/abennett/ttt/pkg/messages"
)

const (
	DefaultRoomDice          = "1d20"
	DefaultMaxNotationLength = 36
)

var (
	ErrRoomExists    = errors.New("room exists")
	ErrRoomNotExists = errors.New("room does not exist")
)

type Server struct {
	rw       *sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	roller   *pkg.Roller

	roomDice          string
	maxNotationLength int

	Rooms map[string]*Room
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithRoller(r *pkg.Roller) Option {
	return func(s *Server) {
		s.roller = r
	}
}

// WithRoomDice sets the notation new rooms roll when a player does not ask
// for anything else.
func WithRoomDice(notation string) Option {
	return func(s *Server) {
		s.roomDice = notation
	}
}

// WithMaxNotationLength bounds notation accepted from clients.
func WithMaxNotationLength(n int) Option {
	return func(s *Server) {
		s.maxNotationLength = n
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		rw:                &sync.RWMutex{},
		logger:            slog.Default(),
		roomDice:          DefaultRoomDice,
		maxNotationLength: DefaultMaxNotationLength,
		Rooms:             map[string]*Room{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roller == nil {
		s.roller = pkg.NewRoller(pkg.WithLogger(s.logger))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "roomName")
	if roomName == "" {
		http.Error(w, "room name is required", http.StatusBadRequest)
		return
	}
	s.logger.Info("serving request", "roomName", roomName)
	room, err := s.GetRoom(roomName)
	if errors.Is(err, ErrRoomNotExists) {
		room, err = s.NewRoom(roomName)
		if errors.Is(err, ErrRoomExists) {
			room, err = s.GetRoom(roomName)
		}
	}
	if err != nil {
		s.logger.Error("unable to create new room", "room_name", roomName, "error", err)
		http.Error(w, "unable to create new room", http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Keep connection alive
	room.RunSession(r.Context(), conn)

	room.mu.Lock()
	if len(room.userSessions) == 0 {
		s.rw.Lock()
		delete(s.Rooms, roomName)
		s.rw.Unlock()
		s.logger.Info("closed room", "room", roomName)
	}
	room.mu.Unlock()
}

func (s *Server) NewRoom(name string) (*Room, error) {
	s.rw.Lock()
	defer s.rw.Unlock()
	_, ok := s.Rooms[name]
	if ok {
		return nil, ErrRoomExists
	}
	s.Rooms[name] = &Room{
		mu:                new(sync.Mutex),
		logger:            s.logger.With("room", name),
		roller:            s.roller,
		maxNotationLength: s.maxNotationLength,
		userSessions:      make(map[string]userSession),
		Version:           0,
		Dice:              s.roomDice,
		Name:              name,
		Rolls:             map[string]messages.RollResult{},
	}
	return s.Rooms[name], nil
}

func (s *Server) GetRoom(roomName string) (*Room, error) {
	s.rw.RLock()
	defer s.rw.RUnlock()
	room, ok := s.Rooms[roomName]
	if !ok {
		return room, ErrRoomNotExists
	}
	return room, nil
}

// GetRooms snapshots the state of every open room.
func (s *Server) GetRooms() map[string]messages.RoomState {
	s.rw.RLock()
	rooms := make([]*Room, 0, len(s.Rooms))
	for _, room := range s.Rooms {
		rooms = append(rooms, room)
	}
	s.rw.RUnlock()

	states := make(map[string]messages.RoomState, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		states[room.Name] = room.ToState()
		room.mu.Unlock()
	}
	return states
}
