package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tallerops/internal/apierror"
	"tallerops/internal/cashbox"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeDomainError maps ledger errors to HTTP responses. Conflicts carry the
// open session id so the client can redirect the operator to it.
func writeDomainError(c *gin.Context, err error) {
	var alreadyOpen *cashbox.SessionAlreadyOpenError
	switch {
	case errors.As(err, &alreadyOpen):
		c.JSON(http.StatusConflict, apierror.NewConflict(err.Error(), alreadyOpen.OpenSessionID.String()))
	case errors.Is(err, cashbox.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, cashbox.ErrSessionNotOpen),
		errors.Is(err, cashbox.ErrSessionAlreadyClosed),
		errors.Is(err, cashbox.ErrSessionMismatch):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, cashbox.ErrInvalidAmount),
		errors.Is(err, cashbox.ErrUnbalancedTender):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	default:
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	}
}
