package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/shiv248/coedit/internal/protocol"
	"github.com/shiv248/coedit/pkg/codec"
	"github.com/shiv248/coedit/pkg/document"
)

// Connection drives a single client's WebSocket lifecycle against a
// Coordinator: the per-connection half of component C8, adapted from
// the teacher's Connection but keyed on a string userID instead of an
// atomic counter, and reading the Coordinator's subscriber channel
// instead of a single shared Updates() channel.
type Connection struct {
	userID       string
	coordinator  *Coordinator
	conn         *websocket.Conn
	ctx          context.Context
	cancel       context.CancelFunc
	sendMu       sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConnection creates a connection handler with a freshly minted user id.
func NewConnection(coordinator *Coordinator, conn *websocket.Conn, readTimeout, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Connection{
		userID:       uuid.NewString(),
		coordinator:  coordinator,
		conn:         conn,
		ctx:          ctx,
		cancel:       cancel,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Handle drives the connection until it closes or errors.
func (c *Connection) Handle(ctx context.Context) error {
	defer c.cleanup()

	log.Printf("connection! id = %s", c.userID)

	if err := c.sendInitial(); err != nil {
		return fmt.Errorf("send initial: %w", err)
	}

	updates := c.coordinator.Subscribe(c.userID)
	updatesDone := make(chan struct{})
	go c.forwardUpdates(updates, updatesDone)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return c.ctx.Err()
		default:
		}

		readCtx, readCancel := context.WithTimeout(ctx, c.readTimeout)
		var msg protocol.ClientMsg
		err := wsjson.Read(readCtx, c.conn, &msg)
		readCancel()
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		if err := c.handleMessage(&msg); err != nil {
			log.Printf("error handling message from user %s: %v", c.userID, err)
			return err
		}
	}
}

// sendInitial sends Identity, then a full-document Sync, then every
// currently-known peer's info and cursor, per spec §6's connect sequence.
func (c *Connection) sendInitial() error {
	if err := c.send(protocol.NewIdentityMsg(c.userID)); err != nil {
		return err
	}

	lines, revision, otp, users, cursors := c.coordinator.GetInitialState()
	if err := c.send(protocol.NewSyncMsg(revision, lines, otp)); err != nil {
		return err
	}

	for id, info := range users {
		infoCopy := info
		if err := c.send(protocol.NewUserInfoMsg(id, &infoCopy)); err != nil {
			return err
		}
	}
	for _, entry := range cursors {
		pos := protocol.PositionDTO{Line: entry.Position.Line, Column: entry.Position.Column}
		if err := c.send(protocol.NewCursorMsg(entry.UserID, pos, entry.Color, entry.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) handleMessage(msg *protocol.ClientMsg) error {
	switch {
	case msg.Operation != nil:
		ops, err := decodeOps(msg.Operation.Instructions)
		if err != nil {
			return fmt.Errorf("decode operation: %w", err)
		}
		return c.coordinator.ApplyEdit(c.userID, msg.Operation.Revision, ops)

	case msg.Cursor != nil:
		pos := document.Position{Line: msg.Cursor.Position.Line, Column: msg.Cursor.Position.Column}
		c.coordinator.SetCursor(c.userID, pos, msg.Cursor.Color)

	case msg.ClientInfo != nil:
		c.coordinator.SetUserInfo(c.userID, *msg.ClientInfo)

	case msg.SetOTP != nil:
		c.coordinator.SetOTP(msg.SetOTP.OTP, c.userID)
	}
	return nil
}

func decodeOps(instructions []codec.Instruction) ([]document.Operation, error) {
	return codec.DecodeMany(instructions, document.OriginRemote)
}

// forwardUpdates relays every message the coordinator queues for this
// connection until its subscriber channel closes (document killed or
// this user unsubscribed).
func (c *Connection) forwardUpdates(updates <-chan *protocol.ServerMsg, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := c.send(msg); err != nil {
				log.Printf("error sending to user %s: %v", c.userID, err)
				c.cancel()
				return
			}
		}
	}
}

func (c *Connection) send(msg *protocol.ServerMsg) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	writeCtx, writeCancel := context.WithTimeout(c.ctx, c.writeTimeout)
	defer writeCancel()
	return wsjson.Write(writeCtx, c.conn, msg)
}

func (c *Connection) cleanup() {
	log.Printf("disconnection, id = %s", c.userID)
	c.coordinator.RemoveUser(c.userID)
	c.cancel()
}
