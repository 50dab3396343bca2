package testtool

import (
	"net/http"
	"net/http/pprof"

	"exotoura_chat/pkg/config"
	"exotoura_chat/pkg/logger"
)

// RegisterPprof mounts the pprof endpoints on mux unless running in production.
// Returns whether they were mounted.
func RegisterPprof(mux *http.ServeMux) bool {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return false
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	logger.Log.Info("pprof enabled under /debug/pprof/")
	return true
}
