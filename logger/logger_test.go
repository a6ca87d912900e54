package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	testCases := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "", want: zerolog.InfoLevel},
		{level: "loud", want: zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			assert.Equal(t, tc.want, Setup(&bytes.Buffer{}, tc.level, false))
		})
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &bytes.Buffer{}
	Setup(buf, "info", false)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ok", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	r.GET("/bad", func(ctx *gin.Context) { ctx.String(http.StatusBadRequest, "bad") })

	testCases := []struct {
		path      string
		wantLevel string
		wantCode  int
	}{
		{path: "/ok", wantLevel: "info", wantCode: http.StatusOK},
		{path: "/bad", wantLevel: "warn", wantCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		buf.Reset()
		res := httptest.NewRecorder()
		r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, tc.path, nil))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, tc.wantLevel, line["level"])
		assert.Equal(t, tc.path, line["path"])
		assert.EqualValues(t, tc.wantCode, line["status"])
	}
}
