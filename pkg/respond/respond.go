package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrEmptyBody = errors.New("empty request body")

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// Empty writes an empty JSON object, the body the task store answers deletes with.
func Empty(w http.ResponseWriter, r *http.Request, code int) {
	JSON(w, r, code, struct{}{})
}

// Decode reads a JSON request body into dst. A missing body is ErrEmptyBody.
func Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return ErrEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}
