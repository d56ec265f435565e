package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
	"circuitflow/internal/service"
)

const (
	clientQueue  = 64
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// ClientMsg is anything a client sends. Fields are used per Type.
type ClientMsg struct {
	Type   string          `json:"type"`
	Action canvas.Envelope `json:"action,omitempty"`
	Text   string          `json:"text,omitempty"`
}

// StateMsg is the full view sent on connect and on request.
type StateMsg struct {
	Type     string                    `json:"type"`
	Canvas   canvas.State              `json:"canvas"`
	Paths    []canvas.RoutedConnection `json:"paths"`
	Status   domain.WorkflowStatus     `json:"status"`
	Chat     service.ChatView          `json:"chat"`
	Palette  []domain.PaletteCategory  `json:"palette"`
	Workflow *domain.Workflow          `json:"workflow,omitempty"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Options wires the server to the services it drives.
type Options struct {
	Hub       *Hub
	Canvas    *service.CanvasService
	Execution *service.ExecutionService
	Chat      *service.ChatService
	Status    *service.StatusService
	Workflows *service.WorkflowService // optional
	Logger    *slog.Logger
}

type Server struct {
	ctx       context.Context
	hub       *Hub
	canvas    *service.CanvasService
	exec      *service.ExecutionService
	chat      *service.ChatService
	status    *service.StatusService
	workflows *service.WorkflowService
	log       *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer creates a server whose background work (runs, chat replies) is
// bound to ctx.
func NewServer(ctx context.Context, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctx:       ctx,
		hub:       opts.Hub,
		canvas:    opts.Canvas,
		exec:      opts.Execution,
		chat:      opts.Chat,
		status:    opts.Status,
		workflows: opts.Workflows,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Routes returns the HTTP mux: /ws for clients and /healthz for probes.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, clientQueue)
		id := s.hub.register(out)
		defer s.hub.unregister(id)
		s.log.Info("client connected", "client", id, "remote", r.RemoteAddr)

		s.send(out, s.snapshot())

		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var m ClientMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				s.send(out, errorMsg{Type: TypeError, Error: "malformed message"})
				continue
			}
			s.handle(out, m)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Info("client disconnected", "client", id)
	}
}

// handle applies one client message. Results reach the client through the
// hub broadcast; only failures are answered directly.
func (s *Server) handle(out chan []byte, m ClientMsg) {
	switch m.Type {
	case TypeDispatch:
		a, err := canvas.Decode(m.Action)
		if err != nil {
			s.send(out, errorMsg{Type: TypeError, Error: err.Error()})
			return
		}
		s.canvas.Dispatch(s.ctx, a)
	case TypeRun:
		s.exec.Start(s.ctx)
	case TypeStop:
		s.exec.Stop(s.ctx)
	case TypeChat:
		s.chat.Send(m.Text)
	case TypeState:
		s.send(out, s.snapshot())
	default:
		s.send(out, errorMsg{Type: TypeError, Error: "unknown message type " + m.Type})
	}
}

func (s *Server) snapshot() StateMsg {
	msg := StateMsg{
		Type:    TypeState,
		Canvas:  s.canvas.State(),
		Paths:   s.canvas.Paths(),
		Status:  s.status.Workflow(),
		Chat:    s.chat.View(),
		Palette: domain.Palette(),
	}
	if s.workflows != nil {
		msg.Workflow = s.workflows.Current()
	}
	return msg
}

// send queues v for one client, dropping it if the queue is full.
func (s *Server) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal message", "err", err)
		return
	}
	select {
	case out <- b:
	default:
	}
}
