package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/middleware"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
	"github.com/memo-edu/memo-api/pkg/response"
)

// requirePrincipal writes 401 and returns false when the route ran without JWT.
func requirePrincipal(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok || principal.UserID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unauthenticated"))
		return models.Principal{}, false
	}
	return principal, true
}

// optionalPrincipal returns nil for anonymous callers.
func optionalPrincipal(c *gin.Context) *models.Principal {
	principal, ok := middleware.Principal(c)
	if !ok {
		return nil
	}
	return &principal
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
		return 0, false
	}
	return id, true
}

func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return false
	}
	return true
}

// bindJSON answers 400 for a body that is not JSON and 422 for a field of the wrong type.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	err := c.ShouldBindJSON(dest)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		response.Error(c, appErrors.Validation(map[string]string{field: typeMessage(typeErr.Type)}))
		return false
	}
	response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, message))
	return false
}

func typeMessage(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "has an invalid type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be an integer"
	case reflect.Float32, reflect.Float64:
		return "must be a number"
	case reflect.String:
		return "must be a string"
	case reflect.Bool:
		return "must be true or false"
	case reflect.Slice, reflect.Array:
		return "must be an array"
	case reflect.Map, reflect.Struct:
		return "must be an object"
	default:
		return "has an invalid type"
	}
}
