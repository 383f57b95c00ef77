package server

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/shiv248/coedit/pkg/database"
)

// hostedDocument pairs a Coordinator with the bookkeeping the idle-cleanup
// sweep needs.
type hostedDocument struct {
	lastAccessed time.Time
	coordinator  *Coordinator
}

// HostConfig bundles the tunables the teacher exposed as environment
// variables, now threaded explicitly from cmd/server's cobra flags.
type HostConfig struct {
	MaxDocumentSize     int
	BroadcastBufferSize int
	WSReadTimeout       time.Duration
	WSWriteTimeout      time.Duration
}

// Host is the multi-document HTTP+WebSocket server (the outer half of
// component C8; Coordinator is the inner, per-document half).
type Host struct {
	cfg       HostConfig
	documents sync.Map // map[string]*hostedDocument
	startTime time.Time
	db        *database.Database
	mux       *http.ServeMux
}

// NewHost creates an HTTP handler hosting every collaborative document.
// db may be nil, in which case documents live in memory only.
func NewHost(db *database.Database, cfg HostConfig) *Host {
	h := &Host{cfg: cfg, startTime: time.Now(), db: db, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/socket/", h.handleSocket)
	h.mux.HandleFunc("/api/text/", h.handleText)
	h.mux.HandleFunc("/api/stats", h.handleStats)
	return h
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Host) handleSocket(w http.ResponseWriter, r *http.Request) {
	docID := strings.TrimPrefix(r.URL.Path, "/api/socket/")
	if docID == "" {
		http.Error(w, "document ID required", http.StatusBadRequest)
		return
	}

	doc := h.getOrCreate(docID)
	doc.lastAccessed = time.Now()

	if h.db != nil {
		go h.persist(r.Context(), docID, doc.coordinator)
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{CompressionMode: websocket.CompressionDisabled})
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := NewConnection(doc.coordinator, conn, h.cfg.WSReadTimeout, h.cfg.WSWriteTimeout)
	if err := ch.Handle(r.Context()); err != nil {
		log.Printf("connection error on %s: %v", docID, err)
	}
}

func (h *Host) handleText(w http.ResponseWriter, r *http.Request) {
	docID := strings.TrimPrefix(r.URL.Path, "/api/text/")
	if docID == "" {
		http.Error(w, "document ID required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if v, ok := h.documents.Load(docID); ok {
		w.Write([]byte(v.(*hostedDocument).coordinator.Text()))
		return
	}
	if h.db != nil {
		if persisted, err := h.db.Load(docID); err == nil && persisted != nil {
			w.Write([]byte(persisted.Text))
			return
		}
	}
	w.Write([]byte(""))
}

// Stats is the response body of GET /api/stats.
type Stats struct {
	StartTime    int64 `json:"start_time"`
	NumDocuments int   `json:"num_documents"`
	DatabaseSize int   `json:"database_size"`
}

func (h *Host) handleStats(w http.ResponseWriter, r *http.Request) {
	numDocs := 0
	h.documents.Range(func(_, _ interface{}) bool { numDocs++; return true })

	dbSize := 0
	if h.db != nil {
		if n, err := h.db.Count(); err == nil {
			dbSize = n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Stats{StartTime: h.startTime.Unix(), NumDocuments: numDocs, DatabaseSize: dbSize})
}

func (h *Host) getOrCreate(id string) *hostedDocument {
	if v, ok := h.documents.Load(id); ok {
		return v.(*hostedDocument)
	}

	var coord *Coordinator
	if h.db != nil {
		if persisted, err := h.db.Load(id); err == nil && persisted != nil {
			coord = FromPersistedText(id, persisted.Text, persisted.OTP, h.cfg.MaxDocumentSize, h.cfg.BroadcastBufferSize)
		}
	}
	if coord == nil {
		coord = New(id, h.cfg.MaxDocumentSize, h.cfg.BroadcastBufferSize)
	}

	doc := &hostedDocument{lastAccessed: time.Now(), coordinator: coord}
	actual, _ := h.documents.LoadOrStore(id, doc)
	return actual.(*hostedDocument)
}

// StartCleaner periodically removes documents idle longer than expiry.
func (h *Host) StartCleaner(ctx context.Context, expiry time.Duration, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupExpired(expiry)
		}
	}
}

func (h *Host) cleanupExpired(expiry time.Duration) {
	now := time.Now()
	var stale []string
	h.documents.Range(func(key, value interface{}) bool {
		if now.Sub(value.(*hostedDocument).lastAccessed) > expiry {
			stale = append(stale, key.(string))
		}
		return true
	})
	for _, id := range stale {
		if v, ok := h.documents.LoadAndDelete(id); ok {
			v.(*hostedDocument).coordinator.Kill()
		}
	}
	if len(stale) > 0 {
		log.Printf("cleaner removed %d idle document(s)", len(stale))
	}
}

func (h *Host) ListenAndServe(addr string) error {
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, h)
}

func (h *Host) Shutdown(ctx context.Context) error {
	h.documents.Range(func(_, value interface{}) bool {
		value.(*hostedDocument).coordinator.Kill()
		return true
	})
	return nil
}

// persist periodically snapshots a document's text to the database,
// jittered to avoid every connected document's persister waking in lockstep.
func (h *Host) persist(ctx context.Context, id string, coord *Coordinator) {
	const interval = 3 * time.Second
	const jitter = 1 * time.Second

	lastRevision := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval + time.Duration(rand.Int63n(int64(jitter)))):
		}
		if coord.Killed() {
			return
		}
		revision := coord.Revision()
		if revision <= lastRevision {
			continue
		}
		doc := &database.PersistedDocument{ID: id, Text: coord.Text(), OTP: coord.OTP()}
		if err := h.db.Store(doc); err != nil {
			log.Printf("error persisting document %s: %v", id, err)
			continue
		}
		lastRevision = revision
	}
}
