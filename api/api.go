package api

import (
	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net"
	"net/http"
	"net/http/pprof"
)

type Config struct {
	Gatherer prometheus.Gatherer
	Version  string
	Commit   string
	Source   string
	Log      Logger
}

// Api serves the optional debug endpoints: status, metrics and pprof.
type Api struct {
	router  *mux.Router
	server  *http.Server
	version string
	commit  string
	source  string
	log     Logger
}

func New(config *Config) *Api {
	api := &Api{
		router:  mux.NewRouter(),
		version: config.Version,
		commit:  config.Commit,
		source:  config.Source,
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Use(api.loggingMiddleware)

	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)

	if config.Gatherer != nil {
		api.router.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api.router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	api.router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	api.router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	api.router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	api.router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	// Redirect the root path
	api.router.Path("/").Handler(http.RedirectHandler("/debug/pprof/", http.StatusSeeOther))

	api.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.jsonError(w, "not found", http.StatusNotFound)
	})

	api.server = &http.Server{Handler: api.router}

	return api
}

func (a *Api) Serve(l net.Listener) error {
	err := a.server.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}

func (a *Api) Close() error {
	return a.server.Close()
}

func (a *Api) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.log.Debugf("%v %v", r.Method, r.RequestURI)
		next.ServeHTTP(w, r)
	})
}
