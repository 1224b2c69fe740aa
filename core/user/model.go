package user

import (
	"time"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSchool Role = "school"
)

func ParseRole(v string) (Role, error) {
	switch v {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleSchool):
		return RoleSchool, nil
	default:
		return "", errors.New("invalid role")
	}
}

type CreateUserRequest struct {
	Username          string `json:"username,omitempty"`
	Role              Role   `json:"role,omitempty"`
	SchoolID          uint64 `json:"schoolId,omitempty"`
	PlainTextPassword string `json:"-"`
}

type User struct {
	Username       string
	HashedPassword string
	Role           Role
	SchoolID       uint64
	Created        time.Time
}

// Actor is who a request runs as, carried through every operation that needs
// a scope check.
type Actor struct {
	Username string
	Role     Role
	SchoolID uint64
}

func (u User) Actor() Actor {
	return Actor{Username: u.Username, Role: u.Role, SchoolID: u.SchoolID}
}
