package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/audit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByMsgID(ctx context.Context, fspCode, msgID string) ([]*audit.Record, error) {
	args := m.Called(ctx, fspCode, msgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*audit.Record, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "xml signature",
			body:     `<Document><Data><MsgId>1</MsgId></Data><Signature>c2VjcmV0</Signature></Document>`,
			expected: `<Document><Data><MsgId>1</MsgId></Data><Signature>***</Signature></Document>`,
		},
		{
			name:     "multiline xml signature",
			body:     "<Signature>\nabc\ndef\n</Signature>",
			expected: "<Signature>***</Signature>",
		},
		{
			name:     "json signature",
			body:     `{"Document":{"Data":{},"Signature" : "c2VjcmV0\"x"}}`,
			expected: `{"Document":{"Data":{},"Signature" : "***"}}`,
		},
		{
			name:     "no signature",
			body:     `<Document><Data/></Document>`,
			expected: `<Document><Data/></Document>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeBody([]byte(tt.body)))
		})
	}
}

func TestAuditMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	requestBody := `<Document><Data><Header><MsgId>MSG-1</MsgId></Header></Data><Signature>c2lnbmF0dXJl</Signature></Document>`

	newRouter := func(repo audit.Repository, handlerBody *string) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Audit(logger, repo, 1<<20))
		router.POST("/loan-status", func(c *gin.Context) {
			b, _ := io.ReadAll(c.Request.Body)
			*handlerBody = string(b)
			c.Set(FSPCodeKey, "FSP01")
			c.Set(MsgIDKey, "MSG-1")
			c.Set(MessageTypeKey, "LOAN_STATUS_REQUEST")
			WriteEnvelope(c, newTestBuilder(), http.StatusOK, 8000, "ok", headerFromContext(c), nil)
		})
		return router
	}

	t.Run("records a sanitised request and response", func(t *testing.T) {
		repo := new(MockAuditRepository)
		var captured *audit.Record
		repo.On("Create", mock.Anything, mock.AnythingOfType("*audit.Record")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*audit.Record) }).
			Return(nil).Once()

		var handlerBody string
		req, _ := http.NewRequest(http.MethodPost, "/loan-status", strings.NewReader(requestBody))
		req.Header.Set("Content-Type", "application/xml")
		req.Header.Set(CorrelationIDHeader, "corr-1")
		rr := httptest.NewRecorder()
		newRouter(repo, &handlerBody).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, requestBody, handlerBody, "handler must still see the full body")

		require.NotNil(t, captured)
		assert.Equal(t, "corr-1", captured.CorrelationID)
		assert.Equal(t, http.MethodPost, captured.Method)
		assert.Equal(t, "/loan-status", captured.URL)
		assert.Equal(t, "application/xml", captured.ContentType)
		assert.Equal(t, "FSP01", captured.FSPCode)
		assert.Equal(t, "MSG-1", captured.MsgID)
		assert.Equal(t, "LOAN_STATUS_REQUEST", captured.MessageType)
		assert.Equal(t, "8000", captured.ResultCode)
		assert.Equal(t, http.StatusOK, captured.HTTPStatus)
		assert.Contains(t, captured.RequestBody, "<Signature>***</Signature>")
		assert.NotContains(t, captured.RequestBody, "c2lnbmF0dXJl")
		assert.Contains(t, captured.ResponseBody, "<ResponseCode>8000</ResponseCode>")
		repo.AssertExpectations(t)
	})

	t.Run("storage failure does not affect the response", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

		var handlerBody string
		req, _ := http.NewRequest(http.MethodPost, "/loan-status", strings.NewReader(requestBody))
		req.Header.Set("Content-Type", "application/xml")
		rr := httptest.NewRecorder()
		newRouter(repo, &handlerBody).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "<ResponseCode>8000</ResponseCode>")
		repo.AssertExpectations(t)
	})
}
