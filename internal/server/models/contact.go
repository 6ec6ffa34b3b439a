package models

import "time"

// Contact is a per-user contact record. UserID references the owning account,
// is set at creation and never changed by any update. Extra carries arbitrary
// user-supplied fields and is stored as jsonb.
type Contact struct {
	ID        string
	UserID    string
	Name      string
	Phone     string
	Extra     map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}
