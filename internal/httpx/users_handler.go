package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-bookstore.git/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, in users.Registration) (users.User, error)
	Login(ctx context.Context, username, password string) (users.User, error)
	Get(ctx context.Context, username string) (users.User, error)
	Update(ctx context.Context, username string, patch users.UserPatch) (users.User, error)
}

type UsersHandler struct {
	Users UserService
	Log   *zap.Logger
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResp struct {
	Message string     `json:"message"`
	Data    users.User `json:"data"`
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/register", h.register)
	r.Get("/users/{username}", h.get)
	r.Patch("/users/{username}", h.update)
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "Not inputed all the required field")
		return
	}
	u, err := h.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResp{Message: "Success!", Data: u})
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req users.Registration
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Users.Register(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResp{Message: "Register successful!", Data: u})
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch users.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.Users.Update(r.Context(), chi.URLParam(r, "username"), patch)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResp{Message: "User information has been updated", Data: u})
}

func (h *UsersHandler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case users.IsConflict(err):
		writeError(w, http.StatusConflict, codeConflict, strings.ReplaceAll(err.Error(), "\n", "; "))
	case errors.Is(err, users.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "User not found!")
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Username or password incorrect!")
	case errors.Is(err, users.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, codeInvalidInput, "Please make a change on profile.")
	case errors.Is(err, users.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	default:
		logger(h.Log).Error("users request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}
