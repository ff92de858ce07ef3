package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/service/validate"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	NetworkErrorType    = "network_failure"
	SessionErrorType    = "session_error"
	ServiceErrorType    = "service_error"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes data as indented json followed by new line
func JSON(w io.Writer, data any) error {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")

	if err := enc.Encode(data); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Error writes err as ErrorResponse, picking error type by what failed
func Error(w io.Writer, err error) error {
	return JSON(w, NewErrorResponse(err))
}

func NewErrorResponse(err error) ErrorResponse {
	response := ErrorResponse{
		Error:   ServiceErrorType,
		Message: err.Error(),
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	// Order matters: validation and decoding errors of a response are wrapped in network error chain
	switch {
	case validate.Fields(err) != nil:
		response.Error = ValidationErrorType
		response.Fields = validate.Fields(err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		response.Error = DecodingErrorType
	case errors.Is(err, apperrors.ErrNetworkFailure):
		response.Error = NetworkErrorType
		response.Status = apperrors.StatusCode(err)
	case errors.Is(err, apperrors.ErrNoToken),
		errors.Is(err, apperrors.ErrMalformedToken),
		errors.Is(err, apperrors.ErrExpiredToken),
		errors.Is(err, apperrors.ErrRefreshNotSupported):
		response.Error = SessionErrorType
	}

	return response
}
