package handlers

import (
	"encoding/json"
	"net/http"
)

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   *int64      `json:"count,omitempty"`
	Page    *int        `json:"page,omitempty"`
	Limit   *int        `json:"limit,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(env)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data interface{}, count int64) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondPaged(w http.ResponseWriter, data interface{}, count int64, page, limit int) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count, Page: &page, Limit: &limit})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, envelope{Success: false, Message: msg})
}
