package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"webmcpd/internal/domain"
)

// errorBody is the JSON payload for every non-200 response. Internal
// details stay in the logs; the body carries only the code and a
// caller-facing message.
type errorBody struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeDomainError maps a dispatch-layer error onto the transport:
// NOT_FOUND is 404, PERMISSION_DENIED 403, RESOURCE_EXHAUSTED 429,
// INVALID_ARGUMENT 400, everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	code := domain.CodeFrom(err)
	writeError(w, statusFromCode(code), code, err.Error())
}

func statusFromCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

const maxRequestBody = 1 << 20

// decodeJSONBody fills dst from the request body. An empty body is not
// an error; dst keeps its zero value so optional bodies stay optional.
func decodeJSONBody(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.E(domain.CodeInvalidArgument, "httpapi.decode", "request body is not valid JSON", err)
	}
	return nil
}
