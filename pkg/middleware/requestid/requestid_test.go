package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = Value(c) })

	cases := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"generated", "", false},
		{"reused", "req-123_abc.def", true},
		{"too long", strings.Repeat("a", 65), false},
		{"unsafe characters", "abc\ndef", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(headerKey, tc.inbound)
			}
			r.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(headerKey))
			if tc.reuse {
				assert.Equal(t, tc.inbound, seen)
			} else {
				assert.NotEqual(t, tc.inbound, seen)
			}
		})
	}
}
