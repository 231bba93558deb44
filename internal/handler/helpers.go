package handler

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"salescrm/internal/apierror"
	"salescrm/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

func init() {
	// Report fields by their wire names ("person_name", not "PersonName").
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bind decodes the request with the binding that matches its Content-Type
// (JSON or form) and runs go-playground/validator tags.
func bind(c *gin.Context, req interface{}) error {
	if err := c.ShouldBind(req); err != nil {
		return apierror.Validation("Invalid request body")
	}
	return validateStruct(req)
}

func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apierror.Validation("Invalid request body")
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return apierror.Validation("Missing required field: " + fe.Field())
	}
	return apierror.Validation(fmt.Sprintf("Invalid field %s: %s", fe.Field(), fe.Tag()))
}

// bindAndValidate binds a JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON body"))
		return false
	}
	if err := validateStruct(req); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// respondError writes the error envelope for err. Server-side causes are
// logged here and never reach the client.
func respondError(c *gin.Context, err error) {
	status := apierror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, apierror.Response(err))
}

func isJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON
}
