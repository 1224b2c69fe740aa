package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/bookdepot/stock-service/core/user"
)

type CreateUserRequestDto struct {
	*user.CreateUserRequest
	Password string `json:"password"`
}

func (u *CreateUserRequestDto) Bind(_ *http.Request) error {
	if u.CreateUserRequest == nil || u.Username == "" || u.Password == "" {
		return errors.New("missing required user fields")
	}
	u.PlainTextPassword = u.Password
	return nil
}

// UserResponse carries everything about a user except their credentials.
type UserResponse struct {
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	SchoolID uint64    `json:"schoolId,omitempty"`
	Created  time.Time `json:"created"`
}

func NewUserResponse(u user.User) *UserResponse {
	return &UserResponse{
		Username: u.Username,
		Role:     u.Role,
		SchoolID: u.SchoolID,
		Created:  u.Created,
	}
}

func (*UserResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}
