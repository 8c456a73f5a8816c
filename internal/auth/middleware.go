package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"arithmetic-calculator/internal/httputil"
	"arithmetic-calculator/internal/logger"
)

type claimsKey struct{}

// AuthMiddleware пропускает запрос дальше только с действующим bearer токеном;
// утверждения токена доступны обработчику через GetUserFromContext
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(r)
		if err != nil {
			logger.LogINFO("request rejected",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			unauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func claimsFromRequest(r *http.Request) (*Claims, error) {
	token, err := ExtractTokenFromHeader(r)
	if err != nil {
		return nil, err
	}
	return ValidateToken(token)
}

// unauthorized отвечает 401 с заголовком WWW-Authenticate по схеме Bearer
func unauthorized(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingAuthHeader):
		w.Header().Set("WWW-Authenticate", `Bearer realm="arithmetic"`)
		httputil.WriteError(w, http.StatusUnauthorized, "Не авторизован: требуется токен")
	case errors.Is(err, ErrExpiredToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="arithmetic", error="invalid_token", error_description="token expired"`)
		httputil.WriteError(w, http.StatusUnauthorized, "Не авторизован: срок действия токена истек")
	default:
		w.Header().Set("WWW-Authenticate", `Bearer realm="arithmetic", error="invalid_token"`)
		httputil.WriteError(w, http.StatusUnauthorized, "Не авторизован: "+err.Error())
	}
}

// ContextWithClaims кладет утверждения пользователя в контекст
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetUserFromContext извлекает утверждения, положенные AuthMiddleware
// или gRPC перехватчиком
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// UserIDFromContext возвращает ID владельца токена; без утверждений или с
// неположительным ID - ErrInvalidToken
func UserIDFromContext(ctx context.Context) (int64, error) {
	claims, ok := GetUserFromContext(ctx)
	if !ok || claims.UserID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// RequireAuth - UserIDFromContext для контекста HTTP запроса
func RequireAuth(r *http.Request) (int64, error) {
	return UserIDFromContext(r.Context())
}
