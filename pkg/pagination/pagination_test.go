package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20}, New(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: 100}, New(3, 500))
	assert.Equal(t, Params{Page: 1, Limit: 20}, New(-2, -1))
	assert.Equal(t, 40, New(3, 20).Offset())
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&limit=abc", nil)
	assert.Equal(t, Params{Page: 2, Limit: DefaultLimit}, FromQuery(c))
}
