package response

// Response is the envelope every endpoint answers with
type Response struct {
	Status     string                 `json:"status"`      // "success" or "error"
	StatusCode int                    `json:"status_code"` // HTTP status code
	Data       interface{}            `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Success wraps data in a success envelope
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error wraps a message in an error envelope
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithDetails is Error plus the state a caller needs to retry, such as the
// current status of an order that changed underneath it
func ErrorWithDetails(statusCode int, err string, details map[string]interface{}) Response {
	resp := Error(statusCode, err)
	if len(details) > 0 {
		resp.Details = details
	}
	return resp
}
