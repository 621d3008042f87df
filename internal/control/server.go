package control

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/flow"
	"github.com/gorilla/websocket"
	"github.com/njkleiner/watchc/internal/log"
)

var upgrader = &websocket.Upgrader{}

type Server struct {
	addr string

	// mu protects access to the fields below.
	mu sync.Mutex

	// subs is the list of active subscribers.
	subs []*websocket.Conn
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Submit dispatches evt to all active subscribers.
//
// Submit also removes any subscriber and closes the underlying connection
// the first time dispatching an event to that subscriber fails.
func (s *Server) Submit(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := s.subs[:0]

	for _, conn := range s.subs {
		if err := conn.WriteJSON(evt); err != nil {
			_ = conn.Close()

			continue // drop
		}

		keep = append(keep, conn)
	}

	for idx := len(keep); idx < len(s.subs); idx++ {
		s.subs[idx] = nil // release dropped connections
	}

	s.subs = keep
}

// Subscribers returns the number of active subscribers.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

func (s *Server) Handler() http.Handler {
	mux := flow.New()

	mux.HandleFunc("/ping", s.ping, http.MethodGet)
	mux.HandleFunc("/subscribe", s.subscribe, http.MethodGet)

	return mux
}

// ListenAndServe serves the event feed until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr: s.addr,

		Handler: s.Handler(),

		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan error, 1)

	go func() {
		quit <- srv.ListenAndServe()
	}()

	log.Info(ctx, "serving event feed", slog.String("addr", s.addr))

	select {
	case err := <-quit:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, conn := range s.subs {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Time{})
			_ = conn.Close()
		}

		s.subs = s.subs[:0]

		return srv.Shutdown(context.Background())
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		return // Upgrade has already replied with an error
	}

	s.mu.Lock()
	s.subs = append(s.subs, conn)
	s.mu.Unlock()

	log.Debug(r.Context(), "accept subscriber", slog.String("remote", r.RemoteAddr))
}
