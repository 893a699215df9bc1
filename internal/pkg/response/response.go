// Package response defines the JSON envelope every handler answers
// with: {"status", "message", "data", "metadata"} on success and
// {"status", "error": {"message", "statusCode", "details"}} on failure.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the success envelope.
type SuccessBody struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Data     any    `json:"data"`
	Metadata any    `json:"metadata,omitempty"`
}

// ErrorBody is the error envelope.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message plus the repeated status code,
// so clients reading only the body still see it.
type ErrorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Details    any    `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func success(c *fiber.Ctx, status int, message string, data, metadata any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return c.Status(status).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Success answers 200 OK in the success envelope.
func Success(c *fiber.Ctx, message string, data, metadata any) error {
	return success(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated answers 201 Created in the success envelope.
func SuccessCreated(c *fiber.Ctx, message string, data, metadata any) error {
	return success(c, fiber.StatusCreated, message, data, metadata)
}

// Error answers with the error envelope and the given status code.
func Error(c *fiber.Ctx, message string, statusCode int, details any) error {
	if details == nil {
		details = map[string]any{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}
