// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

type IdentityID string

// Identity is the authenticated "who". It is produced by the auth
// collaborator at connect time and is immutable for the session.
type Identity struct {
	ID     IdentityID `json:"id"`
	Name   string     `json:"name"`
	Avatar string     `json:"avatar,omitempty"`
}

// NewIdentity avoids raw literals in adapters and keeps construction obvious.
func NewIdentity(id IdentityID, name, avatar string) (Identity, error) {
	if len(name) == 0 {
		return Identity{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return Identity{}, ErrNameTooLong
	}
	return Identity{ID: id, Name: name, Avatar: avatar}, nil
}
