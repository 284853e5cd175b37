package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSONIncludesPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []int{1, 2}, models.NewPagination(45, 20, 2))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 45, pagination["total"])
	assert.EqualValues(t, 20, pagination["per_page"])
	assert.EqualValues(t, 2, pagination["current_page"])
	assert.EqualValues(t, 3, pagination["last_page"])
}

func TestJSONKeepsEmptySlice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	WithMessage(c, http.StatusOK, []string{}, "Academic profile not configured")

	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.Equal(t, "Academic profile not configured", body["message"])
}

func TestErrorUsesCodeAndHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, fmt.Errorf("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
	assert.NotContains(t, w.Body.String(), "relation does not exist")
}

func TestErrorWritesFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Validation(map[string]string{"q": "must be at least 2 characters"}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Equal(t, "must be at least 2 characters", body["errors"].(map[string]interface{})["q"])
}
