package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/interfaces/http/dto"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.NewNotFoundError("order", id), http.StatusNotFound, shared.CodeNotFound},
		{"wrong party", shared.NewUnauthorizedError("ship order", id), http.StatusForbidden, shared.CodeUnauthorized},
		{"transition", shared.NewInvalidTransitionError("DRAFTING", "DELIVERED"), http.StatusUnprocessableEntity, shared.CodeInvalidTransition},
		{"insufficient stock", shared.NewInsufficientStockError(id, 5, 2), http.StatusUnprocessableEntity, shared.CodeInsufficientStock},
		{"invalid input", shared.NewInvalidInputError("quantity", "must be positive"), http.StatusBadRequest, shared.CodeInvalidInput},
		{"disabled feature", shared.ErrFeatureDisabled, http.StatusServiceUnavailable, shared.CodeFeatureDisabled},
		{"unknown error is opaque", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.RunHTTPTestCase(t, func(c *gin.Context) { h.HandleError(c, tt.err) }, testutil.HTTPTestCase{
				Name:           tt.name,
				ExpectedStatus: tt.status,
				ExpectedCode:   tt.code,
				Validate: func(t *testing.T, resp dto.Response) {
					assert.Equal(t, "req-"+tt.name, resp.Error.RequestID)
					if tt.code == dto.ErrCodeInternal {
						assert.NotContains(t, resp.Error.Message, "connection reset")
					}
				},
			})
		})
	}
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	tc := testutil.NewTestContext(t, nil)
	(&BaseHandler{}).HandleError(tc.Context, nil)
	assert.Empty(t, tc.ResponseBody())
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	tc := testutil.NewTestContext(t, nil)
	h.Created(tc.Context, gin.H{"id": "1"})
	assert.Equal(t, http.StatusCreated, tc.ResponseCode())

	tc = testutil.NewTestContext(t, nil)
	h.NoContent(tc.Context)
	assert.Equal(t, http.StatusNoContent, tc.ResponseCode())
	assert.Empty(t, tc.ResponseBody())

	testutil.RunHTTPTestCase(t, func(c *gin.Context) { h.BadRequest(c, "nope") }, testutil.HTTPTestCase{
		Name:           "bad request",
		ExpectedStatus: http.StatusBadRequest,
		ExpectedCode:   dto.ErrCodeBadRequest,
	})
}

func TestPage(t *testing.T) {
	resp := testutil.RunHTTPTestCase(t, func(c *gin.Context) {
		Page(c, shared.NewPaginated([]string{"a", "b"}, 5, 1, 2))
	}, testutil.HTTPTestCase{Name: "page", ExpectedStatus: http.StatusOK})

	assert.Equal(t, []string{"a", "b"}, testutil.DecodeData[[]string](t, resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(5), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := testutil.RunHTTPTestCase(t, func(c *gin.Context) {
		Page(c, shared.Paginated[string]{Page: 1, PageSize: 20})
	}, testutil.HTTPTestCase{Name: "empty page", ExpectedStatus: http.StatusOK})
	assert.Equal(t, []string{}, testutil.DecodeData[[]string](t, empty))
}

func TestBaseHandler_Binding(t *testing.T) {
	h := &BaseHandler{}

	t.Run("uuid param", func(t *testing.T) {
		id := uuid.New()
		var got uuid.UUID
		testutil.RunHTTPTestCases(t, func(c *gin.Context) {
			parsed, ok := h.uuidParam(c, "id")
			if !ok {
				return
			}
			got = parsed
			h.Success(c, nil)
		}, []testutil.HTTPTestCase{
			{Name: "valid", Params: map[string]string{"id": id.String()}, ExpectedStatus: http.StatusOK},
			{Name: "malformed", Params: map[string]string{"id": "42"}, ExpectedStatus: http.StatusBadRequest, ExpectedCode: shared.CodeInvalidInput},
		})
		assert.Equal(t, id, got)
	})

	t.Run("list query", func(t *testing.T) {
		list := func(target string) (int, dto.ListRequest) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			tc := testutil.NewTestContext(t, req)
			out, _ := h.bindList(tc.Context)
			return tc.ResponseCode(), out
		}

		code, req := list("/orders")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, dto.ListRequest{Page: 1, PageSize: 20, OrderDir: "desc"}, req)

		code, req = list("/orders?page=3&page_size=5&order_by=created_at&order_dir=asc")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 3, req.Page)
		assert.Equal(t, 5, req.PageSize)
		assert.Equal(t, "asc", req.OrderDir)

		code, _ = list("/orders?page_size=1000")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Body = http.NoBody
		req.Header.Set("Content-Type", "application/json")
		tc := testutil.NewTestContext(t, req)
		var body struct{}
		assert.False(t, h.bindJSON(tc.Context, &body))
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
	})
}
