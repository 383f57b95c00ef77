package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/shiv248/coedit/pkg/codec"
)

// UserInfo is a connected user's display information.
type UserInfo struct {
	Name string `json:"name"`
	Hue  uint32 `json:"hue"`
}

// PositionDTO is the wire shape of document.Position.
type PositionDTO struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ClientOperationMsg is the client→server "operation" message of spec §6.
type ClientOperationMsg struct {
	Revision     int                 `json:"revision"`
	Instructions []codec.Instruction `json:"instructions"`
}

// ClientCursorMsg is the client→server "cursor" message of spec §6.
type ClientCursorMsg struct {
	Position PositionDTO `json:"position"`
	Color    string      `json:"color"`
}

// SetOTPMsg requests changing (or clearing, if OTP is nil) the document's
// one-time-password protection.
type SetOTPMsg struct {
	OTP *string `json:"otp"`
}

// ClientMsg is the client→server tagged union; exactly one field is set.
type ClientMsg struct {
	Operation  *ClientOperationMsg `json:"Operation,omitempty"`
	Cursor     *ClientCursorMsg    `json:"Cursor,omitempty"`
	ClientInfo *UserInfo           `json:"ClientInfo,omitempty"`
	SetOTP     *SetOTPMsg          `json:"SetOTP,omitempty"`
}

// UnmarshalJSON implements the tagged-union decode: probe the raw object
// for each known key and populate only the field that's present.
func (m *ClientMsg) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["Operation"]; ok {
		var op ClientOperationMsg
		if err := json.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("protocol: decode Operation: %w", err)
		}
		m.Operation = &op
	}
	if v, ok := raw["Cursor"]; ok {
		var c ClientCursorMsg
		if err := json.Unmarshal(v, &c); err != nil {
			return fmt.Errorf("protocol: decode Cursor: %w", err)
		}
		m.Cursor = &c
	}
	if v, ok := raw["ClientInfo"]; ok {
		var info UserInfo
		if err := json.Unmarshal(v, &info); err != nil {
			return fmt.Errorf("protocol: decode ClientInfo: %w", err)
		}
		m.ClientInfo = &info
	}
	if v, ok := raw["SetOTP"]; ok {
		var otp SetOTPMsg
		if err := json.Unmarshal(v, &otp); err != nil {
			return fmt.Errorf("protocol: decode SetOTP: %w", err)
		}
		m.SetOTP = &otp
	}
	return nil
}

// SyncMsg is sent once, right after Identity, to bring a newly-connected
// client up to the server's current snapshot instead of replaying the
// full operation history (spec §6 leaves persistence/replay strategy to
// the implementation).
type SyncMsg struct {
	Revision int      `json:"revision"`
	Lines    []string `json:"lines"`
	OTP      *string  `json:"otp,omitempty"`
}

// AckMsg is the server→client "ack" message of spec §6.
type AckMsg struct {
	Revision int `json:"revision"`
}

// ServerOperationMsg is the server→client "operation" message of spec §6.
type ServerOperationMsg struct {
	Revision     int                 `json:"revision"`
	UserID       string              `json:"userId"`
	Instructions []codec.Instruction `json:"instructions"`
}

// ServerCursorMsg is the server→client "cursor" message of spec §6.
type ServerCursorMsg struct {
	UserID   string      `json:"userId"`
	Position PositionDTO `json:"position"`
	Color    string      `json:"color"`
	Name     string      `json:"name,omitempty"`
}

// UserInfoMsg broadcasts a peer's connection/disconnection and display info.
type UserInfoMsg struct {
	UserID string    `json:"userId"`
	Info   *UserInfo `json:"info,omitempty"` // nil means the peer disconnected
}

// OTPMsg broadcasts an OTP change to every connected peer.
type OTPMsg struct {
	OTP    *string `json:"otp"`
	UserID string  `json:"userId"`
}

// ServerMsg is the server→client tagged union; exactly one field is set.
type ServerMsg struct {
	Identity  *string             `json:"Identity,omitempty"`
	Sync      *SyncMsg            `json:"Sync,omitempty"`
	Ack       *AckMsg             `json:"Ack,omitempty"`
	Operation *ServerOperationMsg `json:"Operation,omitempty"`
	Cursor    *ServerCursorMsg    `json:"Cursor,omitempty"`
	UserInfo  *UserInfoMsg        `json:"UserInfo,omitempty"`
	OTP       *OTPMsg             `json:"OTP,omitempty"`
}

// MarshalJSON ensures only the one populated field is present in the
// JSON output, matching the discriminated-union wire shape of spec §6.
func (m *ServerMsg) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case m.Identity != nil:
		result["Identity"] = *m.Identity
	case m.Sync != nil:
		result["Sync"] = m.Sync
	case m.Ack != nil:
		result["Ack"] = m.Ack
	case m.Operation != nil:
		result["Operation"] = m.Operation
	case m.Cursor != nil:
		result["Cursor"] = m.Cursor
	case m.UserInfo != nil:
		result["UserInfo"] = m.UserInfo
	case m.OTP != nil:
		result["OTP"] = m.OTP
	}
	return json.Marshal(result)
}

// Constructors for server messages, mirroring the teacher's New*Msg helpers.

func NewIdentityMsg(userID string) *ServerMsg {
	return &ServerMsg{Identity: &userID}
}

func NewSyncMsg(revision int, lines []string, otp *string) *ServerMsg {
	return &ServerMsg{Sync: &SyncMsg{Revision: revision, Lines: lines, OTP: otp}}
}

func NewAckMsg(revision int) *ServerMsg {
	return &ServerMsg{Ack: &AckMsg{Revision: revision}}
}

func NewOperationMsg(revision int, userID string, instructions []codec.Instruction) *ServerMsg {
	return &ServerMsg{Operation: &ServerOperationMsg{Revision: revision, UserID: userID, Instructions: instructions}}
}

func NewCursorMsg(userID string, pos PositionDTO, color, name string) *ServerMsg {
	return &ServerMsg{Cursor: &ServerCursorMsg{UserID: userID, Position: pos, Color: color, Name: name}}
}

func NewUserInfoMsg(userID string, info *UserInfo) *ServerMsg {
	return &ServerMsg{UserInfo: &UserInfoMsg{UserID: userID, Info: info}}
}

func NewOTPMsg(otp *string, userID string) *ServerMsg {
	return &ServerMsg{OTP: &OTPMsg{OTP: otp, UserID: userID}}
}
