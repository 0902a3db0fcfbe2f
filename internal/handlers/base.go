package handlers

import (
	"errors"
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"inkwell/internal/utils"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func init() {
	// report validation failures by their JSON field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

var statusByCode = map[services.ErrorCode]int{
	services.ErrValidation:     http.StatusBadRequest,
	services.ErrAuthentication: http.StatusUnauthorized,
	services.ErrAuthorization:  http.StatusForbidden,
	services.ErrNotFound:       http.StatusNotFound,
	services.ErrInternal:       http.StatusInternalServerError,
}

// respondError translates a service error into a JSON response.
func respondError(c *gin.Context, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		se = &services.ServiceError{Code: services.ErrInternal, Message: "internal server error", Err: err}
	}

	status, ok := statusByCode[se.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": se.Message, "code": se.Code.String()}
	switch se.Code {
	case services.ErrValidation:
		if se.Field != "" {
			body["field"] = se.Field
		}
	case services.ErrAuthentication:
		body["redirect"] = middleware.LoginRedirect(c)
	}

	if status >= http.StatusInternalServerError {
		utils.Logger.Error("request failed",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		// internal details stay in the log
		body["error"] = "internal server error"
		_ = c.Error(err)
	}

	c.JSON(status, body)
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		respondError(c, &services.ServiceError{
			Code:    services.ErrValidation,
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
		return
	}
	respondError(c, &services.ServiceError{Code: services.ErrValidation, Message: "invalid request body"})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// pathID parses a positive numeric path parameter. Anything else is reported as not found.
func pathID(c *gin.Context, name, what string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		respondError(c, &services.ServiceError{Code: services.ErrNotFound, Message: what + " not found"})
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back to def when absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryBool reads a boolean query parameter, falling back to def when absent or malformed.
func queryBool(c *gin.Context, name string, def bool) bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
