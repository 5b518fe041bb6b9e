package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			err := InitLogger(&LogConfig{Level: "debug", Environment: env, ServiceName: "order-service"})
			require.NoError(t, err)
			assert.NotNil(t, GetLogger())
			assert.Same(t, GetLogger(), zap.L())
		})
	}
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	custom := zap.NewNop()
	ctx := WithContext(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx))
}

func TestFromEcho(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotNil(t, FromEcho(c))

	custom := zap.NewNop()
	c.Set(EchoKey, custom)
	assert.Same(t, custom, FromEcho(c))
}
