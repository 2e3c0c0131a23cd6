package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"recipevault/logging"
	"recipevault/metrics"
)

// NewRouter returns the front-end router with request logging and metrics.
func NewRouter(s *Server, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.Use(logging.Middleware(log), metrics.Middleware("web"))
	s.Routes(r)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}
