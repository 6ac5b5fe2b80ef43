package hub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// DefaultPresenceTTL is how long a heartbeat keeps a peer online.
const DefaultPresenceTTL = 15 * time.Second

type ackRequest struct {
	Count int `json:"count"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type presenceRecord struct {
	at time.Time
	p  domain.Presence
}

// ServerOptions tunes a Server. Zero values pick the defaults.
type ServerOptions struct {
	PresenceTTL time.Duration
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Server is the in-memory hub. All state is lost when the process exits.
type Server struct {
	mu       sync.Mutex
	presence map[domain.PeerKey]presenceRecord
	inbox    map[domain.PeerKey][]domain.Envelope
	receipts map[domain.PeerKey][]domain.Receipt

	ttl   time.Duration
	clock clock.Clock
	log   *zap.Logger
}

// NewServer returns an empty hub.
func NewServer(opts ServerOptions) *Server {
	if opts.PresenceTTL <= 0 {
		opts.PresenceTTL = DefaultPresenceTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		presence: make(map[domain.PeerKey]presenceRecord),
		inbox:    make(map[domain.PeerKey][]domain.Envelope),
		receipts: make(map[domain.PeerKey][]domain.Receipt),
		ttl:      opts.PresenceTTL,
		clock:    opts.Clock,
		log:      opts.Logger.Named("hub"),
	}
}

// Handler returns the hub's HTTP API wrapped in an access log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /presence/{key}", s.withKey(s.handleHeartbeat))
	mux.HandleFunc("GET /presence/{key}", s.withKey(s.handlePresence))
	mux.HandleFunc("POST /msg/{key}", s.withKey(s.handleSend))
	mux.HandleFunc("GET /msg/{key}", s.withKey(s.handleFetch))
	mux.HandleFunc("POST /msg/{key}/ack", s.withKey(s.handleAck))
	mux.HandleFunc("GET /receipts/{key}", s.withKey(s.handleReceipts))
	return s.accessLog(mux)
}

type keyHandler func(w http.ResponseWriter, r *http.Request, key domain.PeerKey)

func (s *Server) withKey(h keyHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := crypto.ParsePeerKey(r.PathValue("key"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h(w, r, key)
	}
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request, key domain.PeerKey) {
	var p domain.Presence
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.Online = true
	s.mu.Lock()
	s.presence[key] = presenceRecord{at: s.clock.Now(), p: p}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request, key domain.PeerKey) {
	s.mu.Lock()
	rec, ok := s.presence[key]
	s.mu.Unlock()

	out := rec.p
	out.Online = ok && s.clock.Since(rec.at) < s.ttl
	writeJSON(w, out)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, to domain.PeerKey) {
	var env domain.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, err := crypto.ParsePeerKey(env.From.String())
	if err != nil {
		http.Error(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	env.From = from
	env.To = to
	env.ID = uuid.NewString()
	if env.Timestamp == 0 {
		env.Timestamp = s.clock.Now().Unix()
	}

	s.mu.Lock()
	s.inbox[to] = append(s.inbox[to], env)
	s.mu.Unlock()
	writeJSON(w, sendResponse{ID: env.ID})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request, key domain.PeerKey) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.mu.Lock()
	q := s.inbox[key]
	if limit == 0 || limit > len(q) {
		limit = len(q)
	}
	out := append([]domain.Envelope{}, q[:limit]...)
	s.mu.Unlock()
	writeJSON(w, out)
}

// handleAck drops the first count envelopes and issues a receipt to each
// envelope's sender.
func (s *Server) handleAck(w http.ResponseWriter, r *http.Request, key domain.PeerKey) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 0 {
		http.Error(w, "bad ack", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	q := s.inbox[key]
	n := min(req.Count, len(q))
	for _, env := range q[:n] {
		s.receipts[env.From] = append(s.receipts[env.From], domain.Receipt{To: key, Seq: env.Seq})
	}
	s.inbox[key] = q[n:]
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request, key domain.PeerKey) {
	s.mu.Lock()
	out := s.receipts[key]
	delete(s.receipts, key)
	s.mu.Unlock()

	if out == nil {
		out = []domain.Receipt{}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Int("bytes", sw.bytes),
			zap.Duration("took", time.Since(start)))
	})
}
