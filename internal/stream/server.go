// Package stream serves a running simulation to websocket clients. Every tick
// advances one iteration and broadcasts the body positions as JSON.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/nbody/internal/body"
	"github.com/san-kum/nbody/internal/sim"
)

// Frame is one broadcast snapshot. Positions holds x, y, z per body.
type Frame struct {
	Iteration  int       `json:"iteration"`
	Bodies     int       `json:"bodies"`
	Throughput float64   `json:"throughput"`
	Paused     bool      `json:"paused"`
	Positions  []float32 `json:"positions"`
}

// Control is the message clients send to steer the run.
type Control struct {
	Paused *bool `json:"paused,omitempty"`
	Reset  bool  `json:"reset,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	sim      *sim.Simulator
	initial  *body.State
	dt       float32
	interval time.Duration

	// state and iteration are owned by the ticking goroutine.
	state     *body.State
	iteration int
	paused    atomic.Bool
	reset     atomic.Bool

	latestMu sync.RWMutex
	latest   Frame

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
}

func NewServer(s *sim.Simulator, initial *body.State, dt float32, interval time.Duration) *Server {
	srv := &Server{
		sim:      s,
		initial:  initial.Clone(),
		dt:       dt,
		interval: interval,
		state:    initial.Clone(),
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
	srv.publish(0)
	return srv
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/frame", s.handleFrame)
	return mux
}

// Latest returns the most recent frame.
func (s *Server) Latest() Frame {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Run ticks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick applies pending controls, advances one iteration unless paused and
// broadcasts the result. It must not be called concurrently with itself.
func (s *Server) Tick() {
	if s.reset.Swap(false) {
		s.state = s.initial.Clone()
		s.iteration = 0
		s.publish(0)
	} else if !s.paused.Load() {
		start := time.Now()
		s.sim.Step(s.state, s.dt)
		elapsed := time.Since(start)
		s.iteration++
		s.publish(sim.Throughput(s.state.Len(), elapsed))
	} else {
		s.latestMu.Lock()
		s.latest.Paused = true
		s.latestMu.Unlock()
	}
	s.broadcast(s.Latest())
}

func (s *Server) publish(throughput float64) {
	positions := make([]float32, 0, 3*s.state.Len())
	for _, b := range s.state.Bodies() {
		positions = append(positions, b.X, b.Y, b.Z)
	}

	s.latestMu.Lock()
	s.latest = Frame{
		Iteration:  s.iteration,
		Bodies:     s.state.Len(),
		Throughput: throughput,
		Paused:     s.paused.Load(),
		Positions:  positions,
	}
	s.latestMu.Unlock()
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.Latest()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = connMutex
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	connMutex.Lock()
	err = conn.WriteJSON(s.Latest())
	connMutex.Unlock()
	if err != nil {
		return
	}

	for {
		var msg Control
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Paused != nil {
			s.paused.Store(*msg.Paused)
		}
		if msg.Reset {
			s.reset.Store(true)
		}
	}
}

func (s *Server) broadcast(frame Frame) {
	s.clientsMu.RLock()
	failed := []*websocket.Conn{}
	for client, mutex := range s.clients {
		mutex.Lock()
		err := client.WriteJSON(frame)
		mutex.Unlock()
		if err != nil {
			client.Close()
			failed = append(failed, client)
		}
	}
	s.clientsMu.RUnlock()

	if len(failed) > 0 {
		s.clientsMu.Lock()
		for _, client := range failed {
			delete(s.clients, client)
		}
		s.clientsMu.Unlock()
	}
}

func (s *Server) closeAll() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client, mutex := range s.clients {
		mutex.Lock()
		client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		client.Close()
		mutex.Unlock()
		delete(s.clients, client)
	}
}
