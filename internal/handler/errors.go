package handler

import (
	"net/http"
	"strconv"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the response envelope. Internal
// causes are logged by the service and never echoed to the client.
func writeError(c *gin.Context, err error) {
	ae := apperror.As(err)
	status := apperror.HTTPStatus(ae.Kind)

	msg := ae.Message
	if ae.Kind == apperror.KindInternal {
		msg = "internal server error"
	}
	if ae.Kind == apperror.KindValidation {
		c.JSON(status, response.FieldError(status, string(ae.Kind), ae.Field, msg))
		return
	}
	c.JSON(status, response.Error(status, string(ae.Kind), msg))
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, apperror.Validation(name, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

// requireSession fetches the caller's session or writes a 401.
func requireSession(c *gin.Context) (auth.Session, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		writeError(c, apperror.Unauthenticated("authorization is missing"))
		return auth.Session{}, false
	}
	return session, true
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, string(apperror.KindValidation), "Invalid request payload: "+err.Error()))
}
