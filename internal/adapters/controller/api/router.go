package api

import (
	"fmt"
	"github.com/gorilla/mux"
	"net/http"
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods("GET")

	r.HandleFunc("/qr/{shortCode}", h.Redirect).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/presets", h.Presets).Methods("GET")
	api.HandleFunc("/render", h.Render).Methods("POST")
	api.HandleFunc("/restyle", h.Restyle).Methods("POST")
	api.HandleFunc("/preview/{session}", h.Preview).Methods("POST")
	api.HandleFunc("/preview/{session}", h.ForgetPreview).Methods("DELETE")
	api.HandleFunc("/preview/{session}/ws", h.PreviewSocket).Methods("GET")
	api.HandleFunc("/codes/{shortCode}/image.{format}", h.CodeImage).Methods("GET")

	owned := api.NewRoute().Subrouter()
	owned.Use(h.RequireToken)
	owned.HandleFunc("/codes", h.Codes).Methods("GET")
	owned.HandleFunc("/codes/{shortCode}/stats", h.CodeStats).Methods("GET")
	return r
}
