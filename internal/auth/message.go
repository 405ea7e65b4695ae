package auth

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
)

// Action names the operation a wallet signed for.
type Action string

const (
	ActionCreateProject Action = "create-project"
	ActionUpdateTasks   Action = "update-tasks"
	ActionFundTreasury  Action = "fund-treasury"
	ActionWithdrawFunds Action = "withdraw-funds"
)

// ResourceNew is the resource id signed for a project that does not exist yet.
const ResourceNew = "new"

// Message is the JSON document a wallet signs to authorize one request. Data
// carries the operation arguments; handlers compare it with the request they
// bound, so one signature covers exactly one set of arguments.
type Message struct {
	Action     Action            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Timestamp  int64             `json:"timestamp"` // unix milliseconds
	PublicKey  string            `json:"publicKey"`
	Data       map[string]string `json:"data,omitempty"`
}

// NewMessage builds a message for action on resource, stamped with t.
func NewMessage(action Action, resource, publicKey string, t time.Time) Message {
	return Message{
		Action:     action,
		ResourceID: resource,
		Timestamp:  t.UnixMilli(),
		PublicKey:  publicKey,
	}
}

// WithData returns a copy of m that also signs data.
func (m Message) WithData(data map[string]string) Message {
	m.Data = data
	return m
}

// Encode returns the exact bytes that are signed and sent in X-Wallet-Message.
func (m Message) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

// ResourceFunc extracts the resource id a route acts on.
type ResourceFunc func(c *gin.Context) string

// ProjectParam reads the project id from the :id path parameter.
func ProjectParam(c *gin.Context) string { return c.Param("id") }

// NewProject is the resource for project creation.
func NewProject(*gin.Context) string { return ResourceNew }
