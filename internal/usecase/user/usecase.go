package user

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	domain "json-user-service/internal/domain/user"
	pkgerrors "json-user-service/pkg/errors"
	"json-user-service/pkg/security"
)

// Repository defines the interface for user data access operations.
// Implementations serialize mutations; Update runs mutate under the same
// lock as the lookup and the write-back.
type Repository interface {
	// List returns every user in stored order.
	List(ctx context.Context) ([]domain.User, error)
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// Create inserts u under the next free ID.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// Update applies mutate to the user with id and persists the result.
	Update(ctx context.Context, id int64, mutate func(u *domain.User) error) (*domain.User, error)
	// Delete removes the user with id.
	Delete(ctx context.Context, id int64) error
}

// Service implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
	locale   language.Tag        // Collation locale for string sorting
}

var _ Usecase = (*Service)(nil)

// New creates a new Service. Strings are sorted with the collation rules of
// locale.
func New(r Repository, locale language.Tag, log *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	return &Service{repo: r, log: log, validate: v, locale: locale}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error message.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewValidationError("", err.Error())
	}

	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", ")))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	field := ""
	if len(validationErrors) == 1 {
		field = validationErrors[0].Field()
	}
	return pkgerrors.NewValidationError(field, "Invalid request: "+strings.Join(messages, ", "))
}

// ListUsers searches, sorts and paginates the collection.
func (s *Service) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	in.Order = strings.ToLower(in.Order)

	s.log.Info("listing users",
		zap.Int64("page", in.Page),
		zap.Int64("per_page", in.PerPage),
		zap.String("search", in.Search),
		zap.String("sort_by", in.SortBy),
		zap.String("order", in.Order),
	)

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	search, err := security.ValidateSearchQuery(in.Search)
	if err != nil {
		s.log.Warn("invalid search query", zap.String("search", in.Search), zap.Error(err))
		return nil, pkgerrors.NewValidationError("search", fmt.Sprintf("Invalid search query: %s", err))
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users = filterUsers(users, search)

	if in.SortBy != "" {
		field, _ := domain.ParseField(in.SortBy)
		sortUsers(users, field, in.Order == OrderDesc, s.locale)
	}

	page := domain.NewPagination(int64(len(users)), in.Page, in.PerPage)
	window := paginate(users, page)

	out := make([]User, len(window))
	for i, u := range window {
		out[i] = toDTO(u)
	}

	return &ListUsersResponse{
		Users: out,
		Pagination: &Pagination{
			Total: page.Total,
			From:  page.From,
			To:    page.To,
		},
	}, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.log.Debug("user not found", zap.Int64("id", in.ID))
		} else {
			s.log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		}
		return nil, err
	}

	dto := toDTO(*u)
	return &dto, nil
}

// CreateUser validates the request and stores a new user under the next free ID.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	s.log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, pkgerrors.NewValidationError("", "Missing required fields")
	}

	u, err := s.repo.Create(ctx, &domain.User{
		Name:    domain.Ptr(in.Name),
		Email:   domain.Ptr(in.Email),
		Address: in.Address,
	})
	if err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	dto := toDTO(*u)
	return &dto, nil
}

// ReplaceUser overwrites every writable field of an existing user.
func (s *Service) ReplaceUser(ctx context.Context, in ReplaceUserRequest) (*User, error) {
	s.log.Info("replacing user", zap.Int64("id", in.ID))

	u, err := s.repo.Update(ctx, in.ID, func(u *domain.User) error {
		*u = domain.User{
			ID:      in.ID,
			Name:    in.Name,
			Email:   in.Email,
			Address: in.Address,
		}
		return nil
	})
	if err != nil {
		s.logWriteError("failed to replace user", in.ID, err)
		return nil, err
	}

	dto := toDTO(*u)
	return &dto, nil
}

// PatchUser merges the supplied fields into an existing user. Only known
// fields are accepted and the ID cannot change.
func (s *Service) PatchUser(ctx context.Context, in PatchUserRequest) (*User, error) {
	keys := make([]string, 0, len(in.Fields))
	for k := range in.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	s.log.Info("patching user", zap.Int64("id", in.ID), zap.Strings("fields", keys))

	changes, err := parsePatch(in.ID, keys, in.Fields)
	if err != nil {
		s.log.Warn("invalid patch body", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	u, err := s.repo.Update(ctx, in.ID, func(u *domain.User) error {
		for _, c := range changes {
			u.Set(c.field, c.value)
		}
		return nil
	})
	if err != nil {
		s.logWriteError("failed to patch user", in.ID, err)
		return nil, err
	}

	dto := toDTO(*u)
	return &dto, nil
}

// DeleteUser removes a user by ID.
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	s.log.Info("deleting user", zap.Int64("id", in.ID))

	if err := s.repo.Delete(ctx, in.ID); err != nil {
		s.logWriteError("failed to delete user", in.ID, err)
		return err
	}
	return nil
}

func (s *Service) logWriteError(msg string, id int64, err error) {
	if pkgerrors.IsNotFound(err) {
		s.log.Warn(msg, zap.Int64("id", id), zap.Error(err))
		return
	}
	s.log.Error(msg, zap.Int64("id", id), zap.Error(err))
}

type fieldChange struct {
	field domain.Field
	value *string
}

// parsePatch validates a sparse field set against the whitelist. A key for a
// field that is not writable (the id) is tolerated only when it repeats the
// target ID.
func parsePatch(id int64, keys []string, fields map[string]json.RawMessage) ([]fieldChange, error) {
	changes := make([]fieldChange, 0, len(keys))

	for _, k := range keys {
		raw := fields[k]
		field, ok := domain.ParseField(k)
		if !ok {
			return nil, pkgerrors.NewValidationError(k, fmt.Sprintf("Unknown field: %s", k))
		}

		if !field.Writable() {
			var got int64
			if err := json.Unmarshal(raw, &got); err != nil || got != id {
				return nil, pkgerrors.NewValidationError(k, "Field id cannot be changed")
			}
			continue
		}

		if isNull(raw) {
			changes = append(changes, fieldChange{field: field})
			continue
		}

		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, pkgerrors.NewValidationError(k, fmt.Sprintf("Field %s must be a string", k))
		}
		changes = append(changes, fieldChange{field: field, value: &v})
	}

	return changes, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
