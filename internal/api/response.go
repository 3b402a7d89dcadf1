package api

import (
	"net/http"

	"quantquery/pkg/quantquery"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeErrorResponse writes an error response with proper HTTP status and error details.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(err.Error())
	}

	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	if qqErr, ok := err.(*quantquery.Error); ok {
		response.ErrorCode = string(qqErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(qqErr.Code)
		response.Code = httpStatus
	}

	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code quantquery.ErrorCode) int {
	switch code {
	case quantquery.ErrCodeInvalidInput, quantquery.ErrCodeNoInput:
		return http.StatusBadRequest
	case quantquery.ErrCodeNoData:
		return http.StatusNotFound
	case quantquery.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case quantquery.ErrCodeDatabase, quantquery.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
