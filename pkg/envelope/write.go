package envelope

import (
	"encoding/json"
	"net/http"
)

// Write serializes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// WriteSuccess serializes data inside a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any, requestID string) error {
	return Write(w, status, NewSuccess(data, requestID))
}

// WriteError serializes err inside an error envelope, using the taxonomy
// status as the HTTP status.
func WriteError(w http.ResponseWriter, err error, requestID, instance string) error {
	body := NewError(err, requestID, instance)
	return Write(w, body.Status, body)
}
