package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/storefront/internal/core/domain"
)

type errorMapping struct {
	target error
	code   string
	status int
	grpc   codes.Code
}

var errorMappings = []errorMapping{
	{domain.ErrNoSession, "no_session", http.StatusUnauthorized, codes.Unauthenticated},
	{domain.ErrNotFound, "not_found", http.StatusNotFound, codes.NotFound},
	{domain.ErrInsufficientStock, "insufficient_stock", http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrExceedsAvailableStock, "exceeds_available_stock", http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrInvalidTransition, "invalid_transition", http.StatusUnprocessableEntity, codes.FailedPrecondition},
	{domain.ErrInvalidQuantity, "invalid_quantity", http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrNothingSelected, "nothing_selected", http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrCheckoutRejected, "checkout_rejected", http.StatusBadGateway, codes.Unavailable},
}

// classify maps a service error to its transport representation.
// Unknown errors are internal and their message is not exposed.
func classify(err error) (errorMapping, ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, errorBody(m.code, err)
		}
	}
	return errorMapping{code: "internal", status: http.StatusInternalServerError, grpc: codes.Internal},
		ErrorResponse{Code: "internal", Message: "internal error"}
}

func errorBody(code string, err error) ErrorResponse {
	body := ErrorResponse{Code: code, Message: err.Error()}

	var short *domain.InsufficientStockError
	var exceeds *domain.ExceedsAvailableStockError
	switch {
	case errors.As(err, &short):
		available := short.Available
		body.Available = &available
	case errors.As(err, &exceeds):
		available, maxAdd := exceeds.Available, exceeds.MaxAddable()
		body.Available = &available
		body.MaxAddable = &maxAdd
	}
	return body
}
