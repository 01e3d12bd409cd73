package engine

import "strings"

// AppError is the uniform error carried through handlers to the app-level
// error handler, which renders it as the error envelope.
type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// SuccessEnvelope is the uniform success shape for every boundary operation.
type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorEnvelope is the uniform error shape for every boundary operation.
type ErrorEnvelope struct {
	Status string    `json:"status"`
	Error  *AppError `json:"error"`
}

func Success(data any) SuccessEnvelope {
	return SuccessEnvelope{Status: "success", Data: data}
}

func ErrorResponse(appErr *AppError) ErrorEnvelope {
	return ErrorEnvelope{Status: "error", Error: appErr}
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Status: 404, Message: msg}
}

// ValidationError joins all collected field messages into one report.
func ValidationError(errs []string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Status: 400, Message: strings.Join(errs, "; ")}
}

func ValidationMessage(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Status: 400, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func ServerConfigError(msg string) *AppError {
	return &AppError{Code: "SERVER_CONFIG", Status: 500, Message: msg}
}

// mutationFailed maps a storage-layer failure to the action-specific code.
func mutationFailed(code string, err error) *AppError {
	return &AppError{Code: code, Status: 400, Message: err.Error()}
}
