package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fieldledger/pkg/domain"
)

// Action is the enumerated kind of an audit event.
type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionAccess        Action = "access"
	ActionLoginSuccess  Action = "login_success"
	ActionLoginFailure  Action = "login_failure"
	ActionConfigChange  Action = "config_change"
	ActionDataExport    Action = "data_export"
	ActionSyncEvent     Action = "sync_event"
	ActionSecurityEvent Action = "security_event"
	ActionCustom        Action = "custom"
)

var validActions = map[Action]struct{}{
	ActionCreate:        {},
	ActionUpdate:        {},
	ActionDelete:        {},
	ActionAccess:        {},
	ActionLoginSuccess:  {},
	ActionLoginFailure:  {},
	ActionConfigChange:  {},
	ActionDataExport:    {},
	ActionSyncEvent:     {},
	ActionSecurityEvent: {},
	ActionCustom:        {},
}

// IsValid reports whether the action is part of the closed set.
func (a Action) IsValid() bool {
	_, ok := validActions[a]
	return ok
}

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown audit action: %s", s)
	}
	return a, nil
}

// Event is one immutable record of "something happened to an entity".
// The subject reference is weak: the referenced entity may be gone by the
// time the event is read, and that is a valid state, never an error.
type Event struct {
	ID        int64             `json:"id"`
	Subject   domain.SubjectRef `json:"-"`
	Actor     string            `json:"actor,omitempty"` // empty means system-initiated
	Action    Action            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"` // opaque before/after snapshot or detail
	Source    string            `json:"source,omitempty"`  // session info: IP address, user agent
	RequestID string            `json:"request_id,omitempty"`
}

// MarshalJSON flattens the subject reference so API clients see stable
// subject_type/subject_id keys.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		SubjectType string `json:"subject_type"`
		SubjectID   string `json:"subject_id"`
	}{
		alias:       alias(e),
		SubjectType: e.Subject.Type.String(),
		SubjectID:   e.Subject.ID,
	})
}

// Filter narrows a query. Zero-valued fields are ignored; From/To bound the
// timestamp half-open as [From, To).
type Filter struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Actor       string
	Action      Action
	From        time.Time
	To          time.Time
}

// Cursor marks a position in the (timestamp, id) ordering. Queries resume
// strictly after it, which keeps pagination deterministic for events sharing
// a timestamp.
type Cursor struct {
	Timestamp time.Time
	ID        int64
}

// IsZero reports whether the cursor points at the beginning.
func (c Cursor) IsZero() bool {
	return c.Timestamp.IsZero() && c.ID == 0
}

// Encode renders the cursor as an opaque page token.
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := fmt.Sprintf("%s|%d", c.Timestamp.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a page token produced by Encode. An empty token means
// start from the beginning; a malformed token is a caller error.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("decode cursor: malformed token")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor timestamp: %w", err)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor id: %w", err)
	}
	return Cursor{Timestamp: ts, ID: id}, nil
}

// After reports whether the event sorts strictly after the cursor in the
// (timestamp, id) ordering.
func (e Event) After(c Cursor) bool {
	if e.Timestamp.After(c.Timestamp) {
		return true
	}
	return e.Timestamp.Equal(c.Timestamp) && e.ID > c.ID
}
