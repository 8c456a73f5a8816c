package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/httputil"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/random"
	"arithmetic-calculator/internal/settlement"
)

// StatusCode сопоставляет ошибку предметной области с HTTP статусом
func StatusCode(err error) int {
	switch {
	case errors.Is(err, evaluator.ErrInvalidOperands),
		errors.Is(err, evaluator.ErrArithmeticDomain),
		errors.Is(err, db.ErrInvalidPage),
		errors.Is(err, db.ErrOperationNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, settlement.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, db.ErrBalanceConflict):
		return http.StatusConflict
	case errors.Is(err, random.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		logger.LogERROR("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httputil.WriteError(w, code, "Внутренняя ошибка сервера")
		return
	}
	httputil.WriteError(w, code, err.Error())
}
