package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-admin-agent/internal/service"
)

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}

// SendServiceError classifies err into the error taxonomy and responds with the
// matching status. Storage and internal failures hide the underlying message.
func SendServiceError(c *fiber.Ctx, err error) error {
	code := service.ErrorCode(err)
	status := StatusForCode(code)
	message := err.Error()
	if status >= fiber.StatusInternalServerError {
		message = "service temporarily unavailable"
		if code == service.CodeInternal {
			message = "internal server error"
		}
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// StatusForCode maps an error code to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case "":
		return fiber.StatusOK
	case service.CodeNotFound:
		return fiber.StatusNotFound
	case service.CodeDuplicateKey:
		return fiber.StatusConflict
	case service.CodeInvalidField, service.CodeValidationError:
		return fiber.StatusBadRequest
	case service.CodeStorageUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
