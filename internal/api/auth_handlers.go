package api

import (
	"encoding/json"
	"net/http"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, int64(s.cfg.Server.MaxRequestBytes))
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, apperr.InvalidArgument("invalid request body"))
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.auth.Signup(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	favorites, err := s.store.ListFavorites(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: list favorites"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":     claims.Email,
		"favorites": favorites,
	})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	favorites, err := s.store.ListFavorites(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: list favorites"))
		return
	}
	if favorites == nil {
		favorites = []string{}
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	var req struct {
		Company string `json:"company"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Company == "" {
		writeError(w, apperr.InvalidArgument("company is required"))
		return
	}

	added, err := s.store.AddFavorite(r.Context(), claims.Subject, req.Company)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: add favorite"))
		return
	}
	if !added {
		writeError(w, apperr.InvalidArgumentf("already a favorite: %s", req.Company))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	if err := s.store.RemoveFavorite(r.Context(), claims.Subject, pathParam(r, "name")); err != nil {
		writeError(w, apperr.Upstream(err, "api: remove favorite"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
