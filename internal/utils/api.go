package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ApiError is the JSON error envelope. Clients branch on ErrorCode.
type ApiError struct {
	StatusCode int    `json:"-"`
	Msg        string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}

func (o *ApiError) Error() string {
	return fmt.Sprintf("%d: %s", o.StatusCode, o.Msg)
}

func NewInternalServerError() ApiError {
	return ApiError{http.StatusInternalServerError, "Internal server error", "internal_server_error"}
}

func NewUnprocessableEntity(msg, errorCode string) ApiError {
	return ApiError{http.StatusUnprocessableEntity, msg, errorCode}
}

func JsonDecodeBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// RenderResponse writes res as JSON with the standard headers every
// response carries.
func RenderResponse(w http.ResponseWriter, statusCode int, res interface{}) {
	setStandardHeaders(w)

	var body []byte
	if res != nil {
		var err error
		body, err = json.Marshal(res)
		if err != nil {
			ae := NewInternalServerError()
			statusCode = ae.StatusCode
			body, err = json.Marshal(&ae)
			if err != nil {
				body = []byte(`{"error": "Internal server error", "error_code": "internal_server_error"}`)
			}
		}
	}
	w.WriteHeader(statusCode)
	if len(body) > 0 {
		w.Write(body)
	}
}

func setStandardHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func AllowedMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if existsInSlice(methods, r.Method) {
			next(w, r)
		} else {
			RenderResponse(w, http.StatusMethodNotAllowed, nil)
		}
	}
}

func AllowedContentTypes(next http.HandlerFunc, mediaTypes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if existsInSlice(mediaTypes, r.Header.Get("content-type")) {
			next(w, r)
		} else {
			RenderResponse(w, http.StatusUnsupportedMediaType, nil)
		}
	}
}

func existsInSlice(list []string, needle string) bool {
	for i := range list {
		if list[i] == needle {
			return true
		}
	}
	return false
}
