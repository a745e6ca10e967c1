package api

import (
	"net/http"

	"github.com/go-chi/render"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func OK() Response { return Response{Status: StatusOK} }

func Error(msg string) Response { return Response{Status: StatusError, Error: msg} }

func renderError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, Error(msg))
}
