package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"warden/internal/logs"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type HTTP struct {
	db           *gorm.DB
	sessions     *Manager
	cookieSecure bool
}

func NewHTTP(db *gorm.DB, sessions *Manager, cookieSecure bool) *HTTP {
	return &HTTP{db: db, sessions: sessions, cookieSecure: cookieSecure}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	priv := r.PathPrefix("/auth").Subrouter()
	priv.Use(h.sessions.Require)
	priv.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	priv.HandleFunc("/me", h.me).Methods(http.MethodGet)
}

func (h *HTTP) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var u models.User
	if err := h.db.Where("username = ?", in.Username).First(&u).Error; err != nil {
		// одинаковый ответ для неизвестного юзера и неверного пароля
		models.WriteError(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}
	if !CheckPassword(u.PasswordHash, in.Password) {
		models.WriteError(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}

	s, err := h.sessions.Create(&u, ClientIP(r), r.UserAgent())
	if err != nil {
		logs.Logger.WithField("user_id", u.ID).Errorf("create session: %v", err)
		models.WriteError(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	models.WriteSuccess(w, "Logged in", map[string]any{
		"user": map[string]any{"id": u.ID, "username": u.Username, "role": u.Role},
	})
}

func (h *HTTP) logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := FromRequest(r); ok {
		h.sessions.Destroy(p.Token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	models.WriteSuccess(w, "Logged out", nil)
}

func (h *HTTP) me(w http.ResponseWriter, r *http.Request) {
	p, _ := FromRequest(r)
	var u models.User
	if err := h.db.First(&u, p.UserID).Error; err != nil {
		models.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	models.WriteJSON(w, http.StatusOK, u)
}
