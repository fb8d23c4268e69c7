package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	domain "json-user-service/internal/domain/user"
	usecase "json-user-service/internal/usecase/user"
	pkgerrors "json-user-service/pkg/errors"
)

// MockUserUsecase is a mock implementation of user.Usecase
type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) ListUsers(ctx context.Context, req usecase.ListUsersRequest) (*usecase.ListUsersResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ListUsersResponse), args.Error(1)
}

func (m *MockUserUsecase) GetUser(ctx context.Context, req usecase.GetUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) ReplaceUser(ctx context.Context, req usecase.ReplaceUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) PatchUser(ctx context.Context, req usecase.PatchUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, req usecase.DeleteUserRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func setupTest(t *testing.T) (*gin.Engine, *UserHandler, *MockUserUsecase) {
	gin.SetMode(gin.TestMode)
	mockUsecase := new(MockUserUsecase)
	handler := NewUserHandler(mockUsecase, zaptest.NewLogger(t))

	r := gin.New()
	return r, handler, mockUsecase
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestListUsers(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users", handler.ListUsers)

		expected := &usecase.ListUsersResponse{
			Users: []usecase.User{
				{ID: 1, Name: domain.Ptr("Alice"), Email: domain.Ptr("a@x.com")},
			},
			Pagination: &usecase.Pagination{Total: 1, From: 1, To: 1},
		}

		mockUsecase.On("ListUsers", mock.Anything, usecase.ListUsersRequest{
			Page:    1,
			PerPage: 1,
			Search:  "ali",
			SortBy:  "name",
			Order:   "asc",
		}).Return(expected, nil)

		w := serve(r, http.MethodGet, "/users?page=1&per_page=1&search=ali&sortBy=name", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total":1,"from":1,"to":1,"data":[{"id":1,"name":"Alice","email":"a@x.com"}]}`, w.Body.String())
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Empty Data Is An Array", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users", handler.ListUsers)

		mockUsecase.On("ListUsers", mock.Anything, mock.Anything).Return(&usecase.ListUsersResponse{
			Users:      []usecase.User{},
			Pagination: &usecase.Pagination{},
		}, nil)

		w := serve(r, http.MethodGet, "/users?page=1&per_page=10", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total":0,"from":0,"to":0,"data":[]}`, w.Body.String())
	})

	paramTests := []struct {
		name     string
		query    string
		expected string
	}{
		{name: "Missing Both", query: "", expected: "Missing required query parameters: page and per_page"},
		{name: "Missing Per Page", query: "?page=1", expected: "Missing required query parameters: page and per_page"},
		{name: "Empty Page", query: "?page=&per_page=1", expected: "Missing required query parameters: page and per_page"},
		{name: "Non Numeric", query: "?page=abc&per_page=1", expected: "Invalid page or per_page value"},
		{name: "Trailing Garbage", query: "?page=2abc&per_page=1", expected: "Invalid page or per_page value"},
		{name: "Zero Page", query: "?page=0&per_page=1", expected: "Invalid page or per_page value"},
		{name: "Negative Per Page", query: "?page=1&per_page=-5", expected: "Invalid page or per_page value"},
	}

	for _, tt := range paramTests {
		t.Run(tt.name, func(t *testing.T) {
			r, handler, mockUsecase := setupTest(t)
			r.GET("/users", handler.ListUsers)

			w := serve(r, http.MethodGet, "/users"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expected, errorBody(t, w))
			mockUsecase.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything)
		})
	}

	t.Run("Usecase Validation Error", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users", handler.ListUsers)

		mockUsecase.On("ListUsers", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewValidationError("sortBy", "Invalid request: sortBy must be one of: id, name, email, address"))

		w := serve(r, http.MethodGet, "/users?page=1&per_page=1&sortBy=password", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorBody(t, w), "sortBy must be one of")
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users/:id", handler.GetUser)

		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: 1}).Return(&usecase.User{
			ID:      1,
			Name:    domain.Ptr("Alice"),
			Email:   domain.Ptr("a@x.com"),
			Address: domain.Ptr("1 Main St"),
		}, nil)

		w := serve(r, http.MethodGet, "/users/1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1,"name":"Alice","email":"a@x.com","address":"1 Main St"}`, w.Body.String())
	})

	t.Run("Non Numeric ID", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users/:id", handler.GetUser)

		w := serve(r, http.MethodGet, "/users/abc", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", errorBody(t, w))
		mockUsecase.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.GET("/users/:id", handler.GetUser)

		mockUsecase.On("GetUser", mock.Anything, usecase.GetUserRequest{ID: 1}).Return(nil, pkgerrors.NewNotFoundError("user", "User not found"))

		w := serve(r, http.MethodGet, "/users/1", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", errorBody(t, w))
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.POST("/users", handler.CreateUser)

		mockUsecase.On("CreateUser", mock.Anything, mock.MatchedBy(func(req usecase.CreateUserRequest) bool {
			return req.Name == "Bob" && req.Email == "b@x.com" && req.Address == nil
		})).Return(&usecase.User{ID: 2, Name: domain.Ptr("Bob"), Email: domain.Ptr("b@x.com")}, nil)

		w := serve(r, http.MethodPost, "/users", `{"name":"Bob","email":"b@x.com"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":2,"name":"Bob","email":"b@x.com"}`, w.Body.String())
	})

	badBodies := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "Missing Name", body: `{"email":"b@x.com"}`, expected: "Missing required fields"},
		{name: "Empty Email", body: `{"name":"Bob","email":""}`, expected: "Missing required fields"},
		{name: "Empty Body", body: "", expected: "Missing required fields"},
		{name: "Invalid JSON", body: "invalid json", expected: "Invalid request body"},
		{name: "Wrong Type", body: `{"name":1,"email":"b@x.com"}`, expected: "Invalid request body"},
	}

	for _, tt := range badBodies {
		t.Run(tt.name, func(t *testing.T) {
			r, handler, mockUsecase := setupTest(t)
			r.POST("/users", handler.CreateUser)

			w := serve(r, http.MethodPost, "/users", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expected, errorBody(t, w))
			mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		})
	}

	t.Run("Usecase Error", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.POST("/users", handler.CreateUser)

		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewInternalError("failed to persist store", errors.New("read-only file system")))

		w := serve(r, http.MethodPost, "/users", `{"name":"Bob","email":"b@x.com"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", errorBody(t, w))
	})
}

func TestReplaceUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.PUT("/users/:id", handler.ReplaceUser)

		mockUsecase.On("ReplaceUser", mock.Anything, mock.MatchedBy(func(req usecase.ReplaceUserRequest) bool {
			return req.ID == 1 && *req.Name == "New" && req.Email == nil && req.Address == nil
		})).Return(&usecase.User{ID: 1, Name: domain.Ptr("New")}, nil)

		w := serve(r, http.MethodPut, "/users/1", `{"name":"New","id":42}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1,"name":"New"}`, w.Body.String())
	})

	t.Run("Empty Body", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.PUT("/users/:id", handler.ReplaceUser)

		mockUsecase.On("ReplaceUser", mock.Anything, usecase.ReplaceUserRequest{ID: 1}).Return(&usecase.User{ID: 1}, nil)

		w := serve(r, http.MethodPut, "/users/1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1}`, w.Body.String())
	})

	t.Run("Not Found", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.PUT("/users/:id", handler.ReplaceUser)

		mockUsecase.On("ReplaceUser", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewNotFoundError("user", "User not found"))

		w := serve(r, http.MethodPut, "/users/9", `{"name":"X"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, handler, _ := setupTest(t)
		r.PUT("/users/:id", handler.ReplaceUser)

		w := serve(r, http.MethodPut, "/users/abc", "{}")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPatchUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.PATCH("/users/:id", handler.PatchUser)

		mockUsecase.On("PatchUser", mock.Anything, mock.MatchedBy(func(req usecase.PatchUserRequest) bool {
			return req.ID == 1 && len(req.Fields) == 1 && string(req.Fields["name"]) == `"Alicia"`
		})).Return(&usecase.User{ID: 1, Name: domain.Ptr("Alicia"), Email: domain.Ptr("a@x.com")}, nil)

		w := serve(r, http.MethodPatch, "/users/1", `{"name":"Alicia"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1,"name":"Alicia","email":"a@x.com"}`, w.Body.String())
	})

	for _, body := range []string{"[1,2]", "null", "nope"} {
		t.Run("Invalid Body "+body, func(t *testing.T) {
			r, handler, mockUsecase := setupTest(t)
			r.PATCH("/users/:id", handler.PatchUser)

			w := serve(r, http.MethodPatch, "/users/1", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid request body", errorBody(t, w))
			mockUsecase.AssertNotCalled(t, "PatchUser", mock.Anything, mock.Anything)
		})
	}

	t.Run("Unknown Field", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.PATCH("/users/:id", handler.PatchUser)

		mockUsecase.On("PatchUser", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewValidationError("role", "Unknown field: role"))

		w := serve(r, http.MethodPatch, "/users/1", `{"role":"admin"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Unknown field: role", errorBody(t, w))
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.DELETE("/users/:id", handler.DeleteUser)

		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: 1}).Return(nil)

		w := serve(r, http.MethodDelete, "/users/1", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Not Found", func(t *testing.T) {
		r, handler, mockUsecase := setupTest(t)
		r.DELETE("/users/:id", handler.DeleteUser)

		mockUsecase.On("DeleteUser", mock.Anything, usecase.DeleteUserRequest{ID: 2}).Return(pkgerrors.NewNotFoundError("user", "User not found"))

		w := serve(r, http.MethodDelete, "/users/2", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", errorBody(t, w))
	})
}

func TestHandleError_LogLevels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		level  zapcore.Level
	}{
		{name: "Validation", err: pkgerrors.NewValidationError("role", "Unknown field: role"), status: http.StatusBadRequest, level: zapcore.WarnLevel},
		{name: "Not Found", err: pkgerrors.NewNotFoundError("user", "User not found"), status: http.StatusNotFound, level: zapcore.DebugLevel},
		{name: "Internal", err: errors.New("disk full"), status: http.StatusInternalServerError, level: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			core, logs := observer.New(zapcore.DebugLevel)
			mockUsecase := new(MockUserUsecase)
			handler := NewUserHandler(mockUsecase, zap.New(core))

			r := gin.New()
			r.PATCH("/users/:id", handler.PatchUser)
			mockUsecase.On("PatchUser", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(r, http.MethodPatch, "/users/1", `{"role":"admin"}`)

			assert.Equal(t, tt.status, w.Code)
			entries := logs.All()
			require.NotEmpty(t, entries)
			assert.Equal(t, tt.level, entries[len(entries)-1].Level)
		})
	}
}
