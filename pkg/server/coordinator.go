// Package server hosts one collaborative document per Coordinator and
// multiplexes many documents behind an HTTP+WebSocket Host (component C8).
package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shiv248/coedit/internal/protocol"
	"github.com/shiv248/coedit/pkg/codec"
	"github.com/shiv248/coedit/pkg/cursor"
	"github.com/shiv248/coedit/pkg/document"
	"github.com/shiv248/coedit/pkg/logger"
	"github.com/shiv248/coedit/pkg/ot"
)

// HistoryEntry is one accepted batch in the canonical history: the
// transformed ops plus the id of the client that authored them.
type HistoryEntry struct {
	Ops      []document.Operation
	AuthorID string
}

// Coordinator serializes concurrent edits to one document against its
// canonical history, renamed from the teacher's Kolabpad/Rustpad type and
// generalized from flat-string OT to the line-structured operation model.
type Coordinator struct {
	mu      sync.RWMutex
	doc     *document.Document
	history []HistoryEntry
	users   map[string]protocol.UserInfo
	cursors *cursor.Tracker
	otp     *string

	subscribers map[string]chan *protocol.ServerMsg
	notify      chan struct{}

	killed       atomic.Bool
	lastEditTime atomic.Int64

	maxDocumentSize     int
	broadcastBufferSize int
}

// New creates an empty document's coordinator.
func New(id string, maxDocumentSize, broadcastBufferSize int) *Coordinator {
	return &Coordinator{
		doc:                 document.NewEmpty(id),
		users:               make(map[string]protocol.UserInfo),
		cursors:             cursor.New(),
		subscribers:         make(map[string]chan *protocol.ServerMsg),
		notify:              make(chan struct{}),
		maxDocumentSize:     maxDocumentSize,
		broadcastBufferSize: broadcastBufferSize,
	}
}

// FromPersistedText rehydrates a coordinator from a stored snapshot. The
// history starts empty: a persisted snapshot is a resting point, not a
// replayable op log, so revision resets to 0 for anyone connecting to it.
func FromPersistedText(id, text string, otp *string, maxDocumentSize, broadcastBufferSize int) *Coordinator {
	c := New(id, maxDocumentSize, broadcastBufferSize)
	c.doc = document.FromText(id, text)
	c.otp = otp
	return c
}

func (c *Coordinator) Revision() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

func (c *Coordinator) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc.Text()
}

func (c *Coordinator) Lines() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lines := make([]string, c.doc.LineCount())
	for i := range lines {
		l, _ := c.doc.Line(i)
		lines[i] = l.Text
	}
	return lines
}

func (c *Coordinator) OTP() *string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.otp
}

func (c *Coordinator) UserCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

func (c *Coordinator) HasUser(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.users[userID]
	return ok
}

func (c *Coordinator) LastEditTime() time.Time {
	ts := c.lastEditTime.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// Kill disconnects every subscriber and marks the document dead. Safe to
// call more than once.
func (c *Coordinator) Kill() {
	if c.killed.CompareAndSwap(false, true) {
		c.mu.Lock()
		for _, ch := range c.subscribers {
			close(ch)
		}
		c.subscribers = make(map[string]chan *protocol.ServerMsg)
		close(c.notify)
		c.mu.Unlock()
	}
}

func (c *Coordinator) Killed() bool {
	return c.killed.Load()
}

// Subscribe registers a per-connection channel for metadata broadcasts
// (everything except the initial Identity/Sync handshake, which the
// connection sends directly).
func (c *Coordinator) Subscribe(userID string) <-chan *protocol.ServerMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan *protocol.ServerMsg, c.broadcastBufferSize)
	c.subscribers[userID] = ch
	return ch
}

func (c *Coordinator) Unsubscribe(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subscribers[userID]; ok {
		close(ch)
		delete(c.subscribers, userID)
	}
}

// NotifyChannel is closed (and replaced) on every accepted edit, waking
// any connection goroutine blocked waiting for new history to forward.
func (c *Coordinator) NotifyChannel() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notify
}

func (c *Coordinator) broadcast(msg *protocol.ServerMsg) {
	c.broadcastExcept("", msg)
}

// broadcastExcept sends msg to every subscriber other than exceptID. Per
// spec §4.7, the server MUST NOT echo an accepted operation back to its
// author; exceptID == "" broadcasts to everyone.
func (c *Coordinator) broadcastExcept(exceptID string, msg *protocol.ServerMsg) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, ch := range c.subscribers {
		if id == exceptID {
			continue
		}
		select {
		case ch <- msg:
		default:
			logger.Debug("coordinator: dropping broadcast to %s: channel full", id)
		}
	}
}

// GetInitialState returns everything a newly-connecting client needs for
// its Sync/UserInfo/Cursor handshake.
func (c *Coordinator) GetInitialState() (lines []string, revision int, otp *string, users map[string]protocol.UserInfo, cursors []cursor.Entry) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines = make([]string, c.doc.LineCount())
	for i := range lines {
		l, _ := c.doc.Line(i)
		lines[i] = l.Text
	}
	revision = len(c.history)
	otp = c.otp

	users = make(map[string]protocol.UserInfo, len(c.users))
	for id, info := range c.users {
		users[id] = info
	}
	cursors = c.cursors.GetAll()
	return
}

// ApplyEdit is component C4 wired into C8: transform ops against every
// history entry accepted since the client's base revision (spec §4.7
// step 1), apply the result, append it to history, then ack the author
// and broadcast the transformed ops to everyone else.
func (c *Coordinator) ApplyEdit(userID string, baseRevision int, ops []document.Operation) error {
	c.mu.Lock()

	c.lastEditTime.Store(time.Now().Unix())
	current := len(c.history)
	if baseRevision < 0 || baseRevision > current {
		c.mu.Unlock()
		return fmt.Errorf("invalid revision: got %d, current is %d", baseRevision, current)
	}

	transformed := ops
	for i := baseRevision; i < current; i++ {
		_, transformed = ot.TransformOps(c.history[i].Ops, transformed)
	}

	candidate := document.ApplyAll(c.doc, transformed)
	if len(candidate.Text()) > c.maxDocumentSize {
		c.mu.Unlock()
		return fmt.Errorf("document size %d exceeds maximum of %d bytes", len(candidate.Text()), c.maxDocumentSize)
	}

	c.doc = candidate
	c.history = append(c.history, HistoryEntry{Ops: transformed, AuthorID: userID})
	c.cursors.MapThrough(transformed)
	revision := len(c.history)

	if !c.killed.Load() {
		close(c.notify)
		c.notify = make(chan struct{})
	}
	c.mu.Unlock()

	instructions, err := codec.EncodeMany(transformed)
	if err != nil {
		return fmt.Errorf("encode transformed ops: %w", err)
	}

	c.sendTo(userID, protocol.NewAckMsg(revision))
	c.broadcastExcept(userID, protocol.NewOperationMsg(revision, userID, instructions))
	return nil
}

func (c *Coordinator) sendTo(userID string, msg *protocol.ServerMsg) {
	c.mu.RLock()
	ch, ok := c.subscribers[userID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		logger.Debug("coordinator: dropping message to %s: channel full", userID)
	}
}

func (c *Coordinator) SetCursor(userID string, pos document.Position, color string) {
	c.mu.Lock()
	c.cursors.Update(userID, pos, color, c.users[userID].Name)
	c.mu.Unlock()
	c.broadcastExcept(userID, protocol.NewCursorMsg(userID, protocol.PositionDTO{Line: pos.Line, Column: pos.Column}, color, c.users[userID].Name))
}

func (c *Coordinator) SetUserInfo(userID string, info protocol.UserInfo) {
	c.mu.Lock()
	c.users[userID] = info
	c.mu.Unlock()
	c.broadcast(protocol.NewUserInfoMsg(userID, &info))
}

func (c *Coordinator) SetOTP(otp *string, userID string) {
	c.mu.Lock()
	c.otp = otp
	c.mu.Unlock()
	c.broadcast(protocol.NewOTPMsg(otp, userID))
}

func (c *Coordinator) RemoveUser(userID string) {
	c.mu.Lock()
	delete(c.users, userID)
	c.cursors.Remove(userID)
	c.mu.Unlock()
	c.Unsubscribe(userID)
	c.broadcast(protocol.NewUserInfoMsg(userID, nil))
}
