package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/m3g_exporter/log"
)

var logger = log.New("web")

// ServerDirectory holds the models served by the handlers.
var ServerDirectory string

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/models", HandlerAjaxModels).Methods("GET")
	r.HandleFunc("/json/models/{file}", HandlerAjaxModel).Methods("GET")
	r.HandleFunc("/json/inspect/{file}", HandlerAjaxInspect).Methods("GET")
	r.HandleFunc("/convert/{file}", HandlerConvert).Methods("GET")
	r.HandleFunc("/preview/{file}/{format}", HandlerPreview).Methods("GET")
	r.HandleFunc("/upload", HandlerUpload).Methods("POST")
	r.HandleFunc("/status", HandlerStatus)
	return r
}

func StartServer(addr string, dir string) error {
	ServerDirectory = dir

	h := handlers.RecoveryHandler()(NewRouter())
	h = handlers.LoggingHandler(os.Stdout, h)

	logger.Noticef("Starting server %v serving %q", addr, dir)

	return http.ListenAndServe(addr, h)
}
