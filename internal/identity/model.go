package identity

import "time"

// User represents a registered wallet owner.
type User struct {
	ID           string
	Phone        string
	Tier         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carry a login or registration request.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
