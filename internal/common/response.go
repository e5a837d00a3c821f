package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Body writes a JSON response body.
func Body(w http.ResponseWriter, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

// BodyError writes an {error} body with the given status code. Domain
// precondition failures use http.StatusOK: the body is the canonical
// failure signal, the status code only distinguishes server faults.
func BodyError(w http.ResponseWriter, status int, message string) error {
	b, err := json.Marshal(&ErrorResponse{Error: message})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)

	return nil
}
