package http

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error" example:"student_id is required"`
	Details []ValidationError `json:"details,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"student_id"`
	Message string                 `json:"message,omitempty" example:"student_id is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
