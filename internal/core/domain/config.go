package domain

import "time"

// Config pairs a user with one panel inbound. Deletion only clears Active;
// the row is kept for history.
type Config struct {
	ID         string     `json:"id" bson:"_id"`
	UserID     int64      `json:"user_id" bson:"user_id"`
	InboundID  int        `json:"inbound_id" bson:"inbound_id"`
	ClientUUID string     `json:"client_uuid" bson:"client_uuid"`
	Email      string     `json:"email" bson:"email"`
	Port       int        `json:"port" bson:"port"`
	Flow       string     `json:"flow" bson:"flow"`
	URI        string     `json:"uri" bson:"uri"`
	Active     bool       `json:"active" bson:"active"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// Expired reports whether the config carries an expiry that is not after now.
func (c Config) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// NewConfig carries the fields a store needs to persist a freshly
// provisioned inbound. The store assigns ID, Active and CreatedAt.
type NewConfig struct {
	UserID     int64
	InboundID  int
	ClientUUID string
	Email      string
	Port       int
	Flow       string
	URI        string
	ExpiresAt  *time.Time
}

// Inbound is what the panel hands back after creating an inbound.
type Inbound struct {
	ID         int
	ClientUUID string
	Email      string
	Port       int
	Flow       string
	SNI        string
	URI        string
	QRCode     []byte // PNG
}

// RemoteInbound is one row of the panel's inbound list.
type RemoteInbound struct {
	ID     int
	Port   int
	Remark string
}
