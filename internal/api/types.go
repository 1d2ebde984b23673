package api

// ErrorResponse is the envelope every failed request gets:
// {"message": "...", "status": "error"}.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
