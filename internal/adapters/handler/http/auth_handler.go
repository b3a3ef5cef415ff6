package http

import (
	"net/http"
)

type AuthHandler struct {
	cookieDomain   string
	cookieSameSite http.SameSite
}

func NewAuthHandler(cookieDomain string, cookieSameSite http.SameSite) *AuthHandler {
	return &AuthHandler{
		cookieDomain:   cookieDomain,
		cookieSameSite: cookieSameSite,
	}
}

type meResponse struct {
	Identity string `json:"identity"`
}

// Me godoc
// @Summary      Returns the authenticated account
// @Tags         auth
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing caller identity", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Identity: identity.String()})
}

// Logout godoc
// @Summary      Logs the authenticated account out
// @Description  Clears the access token cookie
// @Tags         auth
// @Success      200
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenName,
		MaxAge:   -1,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		SameSite: h.cookieSameSite,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
