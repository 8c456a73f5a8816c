package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/httputil"
	"arithmetic-calculator/internal/logger"
)

const maxUsernameLength = 200

// UserStore - часть хранилища, нужная обработчикам аутентификации
type UserStore interface {
	CreateUser(ctx context.Context, username, password string, balance int64) (*db.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*db.User, error)
	GetUserByID(ctx context.Context, id int64) (*db.User, error)
}

// Credentials представляет запрос на вход или регистрацию
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse представляет ответ на запрос токена
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Handler обслуживает регистрацию, выдачу токенов и профиль
type Handler struct {
	Users          UserStore
	InitialBalance int64
}

func NewHandler(users UserStore, initialBalance int64) *Handler {
	return &Handler{Users: users, InitialBalance: initialBalance}
}

func decodeCredentials(r *http.Request) (Credentials, error) {
	var req Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	req.Username = strings.TrimSpace(req.Username)
	return req, nil
}

// Register обрабатывает запрос на регистрацию (POST /api/v1/auth/register)
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Ошибка при разборе JSON: "+err.Error())
		return
	}

	// Проверяем, что логин и пароль не пустые
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Логин и пароль не могут быть пустыми")
		return
	}
	if len(req.Username) > maxUsernameLength {
		httputil.WriteError(w, http.StatusBadRequest, "Слишком длинный логин")
		return
	}

	user, err := h.Users.CreateUser(r.Context(), req.Username, req.Password, h.InitialBalance)
	if err != nil {
		if errors.Is(err, db.ErrUserAlreadyExists) {
			httputil.WriteError(w, http.StatusConflict, "Пользователь с таким логином уже существует")
			return
		}
		logger.LogERROR("failed to create user", zap.String("username", req.Username), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Ошибка при создании пользователя")
		return
	}

	logger.LogINFO("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login обрабатывает запрос на выдачу токена (POST /api/v1/auth/token)
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Ошибка при разборе JSON: "+err.Error())
		return
	}

	// Проверяем учетные данные
	user, err := h.Users.AuthenticateUser(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrUserNotFound), errors.Is(err, db.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, "Неверный логин или пароль")
		return
	case errors.Is(err, db.ErrUserInactive):
		httputil.WriteError(w, http.StatusForbidden, "Пользователь отключен")
		return
	default:
		logger.LogERROR("failed to authenticate user", zap.String("username", req.Username), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Ошибка при аутентификации")
		return
	}

	token, err := GenerateToken(user)
	if err != nil {
		logger.LogERROR("failed to sign token", zap.Int64("user_id", user.ID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Ошибка при создании токена")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me возвращает профиль текущего пользователя с актуальным балансом
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := RequireAuth(r)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "Не авторизован")
		return
	}

	user, err := h.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			httputil.WriteError(w, http.StatusUnauthorized, "Не авторизован")
			return
		}
		logger.LogERROR("failed to load user", zap.Int64("user_id", userID), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Ошибка при получении пользователя")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
