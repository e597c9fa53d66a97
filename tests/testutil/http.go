package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/interfaces/http/dto"
	"github.com/pharmanet/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase describes one call of a handler.
type HTTPTestCase struct {
	Name   string
	Method string
	Path   string
	Params map[string]string
	Body   any
	// Caller is nil for an unauthenticated request.
	Caller *identity.Caller

	ExpectedStatus int
	ExpectedCode   string // error code; empty for success responses
	Validate       func(t *testing.T, resp dto.Response)
}

// RunHTTPTestCases runs a slice of HTTP test cases against a handler.
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler directly with a context built from tc and
// checks status, envelope and error code.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) dto.Response {
	t.Helper()

	var body io.Reader
	if tc.Body != nil {
		body = ToJSONReader(t, tc.Body)
	}
	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	path := tc.Path
	if path == "" {
		path = "/"
	}
	req := httptest.NewRequest(method, path, body)
	if tc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := NewTestContext(t, req)
	ctx.SetRequestID("req-" + tc.Name)
	for k, v := range tc.Params {
		ctx.SetParam(k, v)
	}
	if tc.Caller != nil {
		ctx.SetCaller(*tc.Caller)
	}

	handler(ctx.Context)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, ctx.ResponseCode(), "Unexpected status code: %s", ctx.ResponseBody())
	}
	var resp dto.Response
	if len(ctx.ResponseBody()) > 0 {
		require.NoError(t, json.Unmarshal(ctx.ResponseBody(), &resp), "Failed to parse JSON response")
		if tc.ExpectedCode != "" {
			require.NotNil(t, resp.Error, "Expected error object in response")
			assert.False(t, resp.Success)
			assert.Equal(t, tc.ExpectedCode, resp.Error.Code)
		} else if ctx.ResponseCode() < http.StatusBadRequest {
			assert.True(t, resp.Success)
			assert.Nil(t, resp.Error)
		}
	}
	if tc.Validate != nil {
		tc.Validate(t, resp)
	}
	return resp
}

// DecodeData re-decodes the data field of a response into T.
func DecodeData[T any](t *testing.T, resp dto.Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), "Failed to decode response data")
	return out
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}

// TestContext is a gin context over a response recorder
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

// NewTestContext wraps req; nil means GET /
func NewTestContext(t *testing.T, req *http.Request) *TestContext {
	t.Helper()
	if req == nil {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return &TestContext{Context: c, Recorder: w}
}

func (tc *TestContext) SetRequestID(id string) { tc.Context.Set(middleware.RequestIDKey, id) }

// SetCaller authenticates the context as the JWT middleware would
func (tc *TestContext) SetCaller(caller identity.Caller) { tc.Context.Set(middleware.JWTCallerKey, caller) }

func (tc *TestContext) SetParam(key, value string) {
	tc.Context.Params = append(tc.Context.Params, gin.Param{Key: key, Value: value})
}

func (tc *TestContext) ResponseBody() []byte { return tc.Recorder.Body.Bytes() }

// ResponseCode flushes a header-only status such as 204 before reading it
func (tc *TestContext) ResponseCode() int {
	tc.Context.Writer.WriteHeaderNow()
	return tc.Recorder.Code
}
