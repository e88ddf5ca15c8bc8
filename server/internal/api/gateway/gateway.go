// Gateway API implementation
package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"EcbBreaker/server/internal/pkg/helpers"
	"EcbBreaker/server/internal/protocol"
	"EcbBreaker/server/internal/services/auth"
	"EcbBreaker/server/internal/services/challenge"
	"EcbBreaker/server/internal/services/demo"
)

const (
	demoTimeout    = 2 * time.Minute
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 64 << 10
)

// RunLister reads the run history.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]*protocol.RunRecord, error)
}

// Server represents the API gateway
type Server struct {
	addr         string
	authSvc      *auth.Service
	demoSvc      *demo.Service
	challengeSvc *challenge.Service
	runs         RunLister
	logger       *helpers.Logger

	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	hubOnce    sync.Once
}

// Client represents a connected WebSocket client. A non-empty runID limits
// it to the events of one run.
type Client struct {
	runID  string
	conn   *websocket.Conn
	send   chan interface{}
	server *Server
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the token from "Bearer <token>" format
func extractToken(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// New creates a new gateway server
func New(addr string, authSvc *auth.Service, demoSvc *demo.Service, challengeSvc *challenge.Service, runs RunLister) *Server {
	server := &Server{
		addr:         addr,
		authSvc:      authSvc,
		demoSvc:      demoSvc,
		challengeSvc: challengeSvc,
		runs:         runs,
		logger:       helpers.NewLogger("Gateway"),
		clients:      make(map[*Client]bool),
		broadcast:    make(chan interface{}, 1024),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
	}

	demoSvc.SetBroadcastHandler(server.Broadcast)

	return server
}

// Handler returns the routed API and starts the websocket hub.
func (s *Server) Handler() http.Handler {
	s.hubOnce.Do(func() { go s.runHub() })

	router := mux.NewRouter()

	// Root endpoint - return OK for health checks
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("EcbBreaker API Server"))
	}).Methods("GET", "OPTIONS")

	router.HandleFunc("/api/demo/run", s.handleDemoRun).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/runs", s.handleListRuns).Methods("GET", "OPTIONS")

	router.HandleFunc("/api/challenges", s.handleCreateChallenge).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/challenges/{id}/encrypt", s.handleChallengeEncrypt).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/challenges/{id}/verify", s.handleChallengeVerify).Methods("POST", "OPTIONS")

	// WebSocket endpoint
	router.HandleFunc("/ws", s.handleWebSocket)

	return corsMiddleware(router)
}

// Start starts the gateway server
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var clientErr *clientError
	switch {
	case errors.As(err, &clientErr), isInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, challenge.ErrSessionNotFound):
		return http.StatusNotFound
	case isDetectionFailure(err):
		return http.StatusUnprocessableEntity
	case isRateLimited(err):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err, "status", status)
	}
	writeJSON(w, status, protocol.ErrorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &clientError{msg: "invalid request body"}
	}
	return nil
}

// requireOperator validates the bearer token of r.
func (s *Server) requireOperator(r *http.Request) (*auth.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("%w: missing authorization token", auth.ErrInvalidToken)
	}

	token := extractToken(authHeader)
	if token == "" {
		return nil, fmt.Errorf("%w: invalid authorization header format", auth.ErrInvalidToken)
	}

	return s.authSvc.ValidateToken(token)
}

// handleDemoRun runs the attack against a fresh oracle built from the request
func (s *Server) handleDemoRun(w http.ResponseWriter, r *http.Request) {
	var req protocol.DemoRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	key, err := helpers.ValidateDemoRequest(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), demoTimeout)
	defer cancel()

	res, err := s.demoSvc.Run(ctx, demo.Request{
		Key:           key,
		AttackerInput: []byte(req.AttackerInput),
		Unknown:       []byte(req.Unknown),
		Algorithm:     req.Algorithm,
		Mode:          req.Mode,
		Padding:       req.Padding,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res.Response())
}

// handleLogin handles operator login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.authSvc.Login(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			err = &clientError{msg: err.Error()}
		}
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": req.Username,
		"token":    token,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireOperator(r); err != nil {
		s.writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*protocol.RunRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	claims, err := s.requireOperator(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req protocol.ChallengeCreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.challengeSvc.Create(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("challenge created", "id", resp.ID, "operator", claims.Username)

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleChallengeEncrypt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req protocol.ChallengeEncryptRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	input, err := helpers.DecodeHex("input", req.Input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(input) > helpers.MaxAttackerInputLength {
		s.writeError(w, fmt.Errorf("%w: input is %d bytes (max %d)", helpers.ErrRequestTooLarge, len(input), helpers.MaxAttackerInputLength))
		return
	}

	ciphertext, err := s.challengeSvc.Encrypt(r.Context(), id, input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.ChallengeEncryptResponse{Ciphertext: hex.EncodeToString(ciphertext)})
}

func (s *Server) handleChallengeVerify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req protocol.ChallengeVerifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	guess, err := helpers.DecodeHex("guess", req.Guess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ok, err := s.challengeSvc.Verify(id, guess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.ChallengeVerifyResponse{Correct: ok})
}

// handleWebSocket handles WebSocket connections. ?run_id= limits the stream
// to one run.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", err)
		return
	}

	client := &Client{
		runID:  r.URL.Query().Get("run_id"),
		conn:   conn,
		send:   make(chan interface{}, 256),
		server: s,
	}

	s.register <- client
	s.logger.Info("websocket client connected", "remote", r.RemoteAddr, "run_id", client.runID)

	// Start reading and writing goroutines
	go client.readPump()
	go client.writePump()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (c *Client) wants(message interface{}) bool {
	if c.runID == "" {
		return true
	}
	ev, ok := message.(*protocol.WebSocketEvent)
	return ok && ev.RunID == c.runID
}

// runHub manages all connected clients
func (s *Server) runHub() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.logger.Info("websocket client disconnected", "run_id", client.runID)
			}
			s.mu.Unlock()

		case message := <-s.broadcast:
			s.mu.RLock()
			for c := range s.clients {
				if !c.wants(message) {
					continue
				}
				select {
				case c.send <- message:
				default:
					s.logger.Warn("client channel full, disconnecting", "run_id", c.runID)
					go func(cl *Client) { s.unregister <- cl }(c)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// readPump drains the WebSocket connection so control frames are handled
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(protocol.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(protocol.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(protocol.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(protocol.WriteWait))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(protocol.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg interface{}) {
	// Give up after a short wait rather than stall the run
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	select {
	case s.broadcast <- msg:
	case <-ctx.Done():
		if ev, ok := msg.(*protocol.WebSocketEvent); ok {
			s.logger.Warn("broadcast timeout, channel may be full", "type", ev.Type, "run_id", ev.RunID)
		} else {
			s.logger.Warn("broadcast timeout, channel may be full")
		}
	}
}
