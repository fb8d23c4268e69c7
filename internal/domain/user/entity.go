package user

import "strconv"

// User represents a user entity in the system.
// Name, Email and Address are pointers because a record may lack any of
// them; an absent field is omitted from the JSON document entirely.
type User struct {
	ID      int64   `json:"id"`                // ID is the unique, immutable identifier
	Name    *string `json:"name,omitempty"`    // Name is the full name of the user
	Email   *string `json:"email,omitempty"`   // Email is the contact address of the user
	Address *string `json:"address,omitempty"` // Address is the optional street address
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	return User{
		ID:      u.ID,
		Name:    cloneString(u.Name),
		Email:   cloneString(u.Email),
		Address: cloneString(u.Address),
	}
}

// Get returns the value of f and whether it is present. ID is returned as
// int64, every other field as string.
func (u User) Get(f Field) (any, bool) {
	switch f {
	case FieldID:
		return u.ID, true
	case FieldName:
		return deref(u.Name)
	case FieldEmail:
		return deref(u.Email)
	case FieldAddress:
		return deref(u.Address)
	}
	return nil, false
}

// Set assigns a string field. A nil value removes the field. ID cannot be set
// this way.
func (u *User) Set(f Field, v *string) bool {
	switch f {
	case FieldName:
		u.Name = cloneString(v)
	case FieldEmail:
		u.Email = cloneString(v)
	case FieldAddress:
		u.Address = cloneString(v)
	default:
		return false
	}
	return true
}

// Searchable returns the present text fields matched by free-text search.
func (u User) Searchable() []string {
	out := make([]string, 0, 3)
	for _, s := range []*string{u.Name, u.Email, u.Address} {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// String renders a field value the way sorting compares non-numeric values.
func String(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	}
	return ""
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}

func deref(s *string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return *s, true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
