package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "credreg/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError translates domain error codes into HTTP statuses so handlers
// never branch on error kinds themselves.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
	}
	writeJSON(w, statusFor(code), errorBody{Error: string(code), Message: err.Error()})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyExists, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeNotAuthorized:
		return http.StatusForbidden
	case dErrors.CodeTooLong, dErrors.CodeTooShort, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}
