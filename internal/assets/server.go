// internal/assets/server.go
package assets

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/posterforge/internal/types"
)

// Server exposes the asset store over HTTP so the remote tool can resolve
// URL fills against it.
type Server struct {
	store *Store
	mux   *http.ServeMux
}

// NewServer creates an asset Server backed by the given store.
func NewServer(store *Store) *Server {
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /assets/", s.handleAsset)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/assets/")
	if id == "" {
		http.Error(w, `{"error":"asset id required"}`, http.StatusBadRequest)
		return
	}

	data, contentType, err := s.store.Read(types.AssetID(id))
	if err != nil {
		slog.Debug("asset fetch miss", "asset_id", id, "error", err)
		http.Error(w, `{"error":"asset not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", `"`+strconv.Itoa(len(data))+`"`)
	w.Write(data)
}
