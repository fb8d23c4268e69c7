package user

import (
	json "github.com/goccy/go-json"

	domain "json-user-service/internal/domain/user"
)

// Sort orders accepted by ListUsersRequest.Order.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name    string  `param:"name" validate:"required"`
	Email   string  `param:"email" validate:"required"`
	Address *string `param:"address"`
}

// ReplaceUserRequest replaces every writable field of a user. A nil field
// is removed from the stored record.
type ReplaceUserRequest struct {
	ID      int64
	Name    *string
	Email   *string
	Address *string
}

// PatchUserRequest merges Fields into an existing user. Keys are field
// names; a JSON null removes the field.
type PatchUserRequest struct {
	ID     int64
	Fields map[string]json.RawMessage
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// ListUsersRequest selects one page of users after search and sort.
type ListUsersRequest struct {
	Page    int64  `param:"page" validate:"min=1"`
	PerPage int64  `param:"per_page" validate:"min=1"`
	Search  string `param:"search"`
	SortBy  string `param:"sortBy" validate:"omitempty,oneof=id name email address"`
	Order   string `param:"order" validate:"omitempty,oneof=asc desc"`
}

// ListUsersResponse carries one page of users.
type ListUsersResponse struct {
	Users      []User
	Pagination *Pagination
}

// Pagination reports where the page sits within the filtered result.
type Pagination struct {
	Total int64
	From  int64
	To    int64
}

// User represents a user DTO (Data Transfer Object) for API responses.
// Nil fields are absent from the record.
type User struct {
	ID      int64
	Name    *string
	Email   *string
	Address *string
}

func toDTO(u domain.User) User {
	c := u.Clone()
	return User{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Address: c.Address,
	}
}
