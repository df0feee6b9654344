package vaulttest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/medienwerk/credsheet/internal/models"
)

// Server exposes a Store over the vault REST surface so the real HTTP
// client can be exercised in tests via httptest.
type Server struct {
	store    *Store
	user     string
	password string
	key      []byte
	tokenTTL time.Duration
}

// NewServer wraps the store with the given login credentials. Session
// tokens are HMAC-signed JWTs valid for one hour.
func NewServer(store *Store, user, password string) *Server {
	return &Server{
		store:    store,
		user:     user,
		password: password,
		key:      []byte("vaulttest-signing-key"),
		tokenTTL: time.Hour,
	}
}

// Handler returns the chi router serving the vault API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/login", s.handleLogin)

	// Everything else requires a valid bearer token.
	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Get("/api/resolve", s.handleResolve)
		r.Post("/api/folders", s.handleCreateFolder)
		r.Delete("/api/folders/{uid}", s.handleDeleteFolder)
		r.Get("/api/folders/{uid}/folders", s.handleListFolders)
		r.Get("/api/folders/{uid}/records", s.handleListRecords)
		r.Post("/api/records", s.handleCreateRecord)
		r.Get("/api/records/{uid}", s.handleGetRecord)
		r.Delete("/api/records/{uid}", s.handleDeleteRecord)
		r.Post("/api/records/{uid}/files", s.handleAttachFile)
		r.Get("/api/records/{uid}/files/{name}", s.handleDownloadFile)
		r.Post("/api/records/{uid}/share", s.handleShare)
	})

	return r
}

// bearerAuth validates the Authorization header against the signing key.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.key, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Username != s.user || req.Password != s.password {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}

	claims := jwt.MapClaims{
		"sub": req.Username,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	uid, err := s.store.Resolve(r.Context(), r.URL.Query().Get("ref"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uid": uid})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		ParentUID string `json:"parent_uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	folder, err := s.store.CreateFolder(r.Context(), req.Name, req.ParentUID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFolder(r.Context(), chi.URLParam(r, "uid")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.ListFolders(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if folders == nil {
		folders = []models.VaultFolder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recursive := r.URL.Query().Get("recursive") == "true"
	records, err := s.store.ListRecords(r.Context(), chi.URLParam(r, "uid"), recursive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.VaultRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec models.VaultRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	created, err := s.store.CreateRecord(r.Context(), &rec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRecord(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRecord(r.Context(), chi.URLParam(r, "uid")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAttachmentSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	uid := chi.URLParam(r, "uid")
	if err := s.store.AttachFile(r.Context(), uid, r.URL.Query().Get("name"), data); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.DownloadFile(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TTLSeconds int64 `json:"ttl_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	link, err := s.store.CreateShareLink(r.Context(), chi.URLParam(r, "uid"), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
