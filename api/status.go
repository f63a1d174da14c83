package api

import (
	"net/http"
)

type getStatusResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Source  string `json:"source"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := &getStatusResponse{
			Version: a.version,
			Commit:  a.commit,
			Source:  a.source,
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
