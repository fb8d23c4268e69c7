package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"json-user-service/internal/usecase/user"
	pkgerrors "json-user-service/pkg/errors"
	"json-user-service/pkg/logger"
)

// Error messages returned to clients.
const (
	msgMissingPaging  = "Missing required query parameters: page and per_page"
	msgInvalidPaging  = "Invalid page or per_page value"
	msgMissingFields  = "Missing required fields"
	msgInvalidBody    = "Invalid request body"
	msgUserNotFound   = "User not found"
	msgInternalServer = "Internal server error"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required"`
	Address *string `json:"address"`
}

// ReplaceUserRequest represents the HTTP request body for replacing a user.
// Fields left out of the body are removed from the record.
type ReplaceUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// ListUsersResponse represents the HTTP response for listing users
type ListUsersResponse struct {
	Total int64          `json:"total"`
	From  int64          `json:"from"`
	To    int64          `json:"to"`
	Data  []UserResponse `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	pageStr, hasPage := c.GetQuery("page")
	perPageStr, hasPerPage := c.GetQuery("per_page")
	if !hasPage || !hasPerPage || pageStr == "" || perPageStr == "" {
		log.Warn("missing pagination parameters")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingPaging})
		return
	}

	page, pageErr := strconv.ParseInt(pageStr, 10, 64)
	perPage, perPageErr := strconv.ParseInt(perPageStr, 10, 64)
	if pageErr != nil || perPageErr != nil || page < 1 || perPage < 1 {
		log.Warn("invalid pagination parameters", zap.String("page", pageStr), zap.String("per_page", perPageStr))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidPaging})
		return
	}

	ucReq := user.ListUsersRequest{
		Page:    page,
		PerPage: perPage,
		Search:  c.Query("search"),
		SortBy:  c.Query("sortBy"),
		Order:   c.DefaultQuery("order", user.OrderAsc),
	}

	resp, err := h.uc.ListUsers(c.Request.Context(), ucReq)
	if err != nil {
		h.handleError(c, err)
		return
	}

	data := make([]UserResponse, len(resp.Users))
	for i, u := range resp.Users {
		data[i] = toResponse(&u)
	}

	c.JSON(http.StatusOK, ListUsersResponse{
		Total: resp.Pagination.Total,
		From:  resp.Pagination.From,
		To:    resp.Pagination.To,
		Data:  data,
	})
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	u, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		msg := msgInvalidBody
		if errors.As(err, &verrs) || errors.Is(err, io.EOF) {
			msg = msgMissingFields
		}
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	u, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(u))
}

// ReplaceUser handles PUT /api/users/:id
func (h *UserHandler) ReplaceUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ReplaceUserRequest
	// An empty body replaces the record with a bare id
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid replace user request", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
		return
	}

	u, err := h.uc.ReplaceUser(c.Request.Context(), user.ReplaceUserRequest{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// PatchUser handles PATCH /api/users/:id
func (h *UserHandler) PatchUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	fields, err := decodeObject(c)
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid patch user request", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
		return
	}

	u, err := h.uc.PatchUser(c.Request.Context(), user.PatchUserRequest{ID: id, Fields: fields})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id}); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses the :id parameter. An id that is not an integer cannot match
// any record, so it is answered with 404 like any other unknown id.
func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Debug("non-numeric user id", zap.String("id", idStr))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgUserNotFound})
		return 0, false
	}
	return id, true
}

// handleError converts usecase errors to appropriate HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log)
	status := pkgerrors.StatusOf(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Error: msgInternalServer})
		return
	}

	if pkgerrors.IsValidation(err) {
		log.Warn("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// decodeObject reads the body as a JSON object keyed by field name. An empty
// body counts as an empty object.
func decodeObject(c *gin.Context) (map[string]json.RawMessage, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fields, nil
	}
	if bytes.Equal(body, []byte("null")) {
		return nil, errors.New("request body must be a JSON object")
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Address: u.Address,
	}
}
