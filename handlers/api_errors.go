package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/tombaby2015-max/family-photo-album-google/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
	// Error repeats the first detail for clients that read the flat shape.
	Error string `json:"error,omitempty"`
}

const CodeUnauthorized = "unauthorized"

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
		Error: detail,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error onto its status. Store and
// unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var httpErr services.HTTPError
	isHTTPErr := errors.As(err, &httpErr)
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrUpstream):
		log.Printf("Error in %s: %v", op, err)
		writeError(w, http.StatusBadGateway, err.Error())
	case isHTTPErr && httpErr.StatusCode() < http.StatusInternalServerError:
		writeError(w, httpErr.StatusCode(), err.Error())
	default:
		log.Printf("Error in %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// decodeJSON reads the request body into v. Bodies over the router's size
// limit are rejected with 413.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
