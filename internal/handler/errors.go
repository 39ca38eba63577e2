package handler

import (
	"errors"
	"net/http"

	"akppos/internal/apierror"
	"akppos/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error to its HTTP response. Anything that is not
// a known domain error becomes an opaque 500 and is handed to ErrorHandler
// for logging.
func writeError(c *gin.Context, err error) {
	var (
		stockErr      *service.InsufficientStockError
		totalsErr     *service.TotalsMismatchError
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
	)
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, apierror.StockError{
			Error:     stockErr.Error(),
			Product:   stockErr.ProductName,
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		})
	case errors.As(err, &totalsErr), errors.As(err, &validationErr),
		errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrCannotDeleteSelf):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, apierror.New("Insufficient permissions"))
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}
