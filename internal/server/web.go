package server

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/afero"
	"github.com/warpdl/recognition/common"
)

// Handler returns the daemon's HTTP routes:
//
//	POST /jsonrpc      JSON-RPC over HTTP (bearer token)
//	GET  /jsonrpc/ws   JSON-RPC over WebSocket with push (bearer token)
//	GET  /images/...   files under the public directory
//	GET  /healthz      liveness
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(common.RPCPath, requireToken(s.cfg.Secret, false, s.rpc.bridge))
	mux.Handle(common.WSPath, requireToken(s.cfg.Secret, true, http.HandlerFunc(s.rpc.serveWS)))
	mux.Handle(common.ImagesPath, s.imagesHandler())
	mux.HandleFunc(common.HealthPath, s.handleHealth)
	return mux
}

// imagesHandler serves /images/<name> from <public>/images/<name>, the
// same paths the people data refers to.
func (s *Server) imagesHandler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.cfg.Fs).Dir(s.cfg.PublicDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Scrolling bool   `json:"scrolling"`
	Clients   int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&healthResponse{
		Status:    "ok",
		Version:   s.cfg.Version,
		Scrolling: s.rpc.scroll.IsScrolling(),
		Clients:   s.notifier.Count(),
	})
}
