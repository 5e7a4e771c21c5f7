package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// envelope. Sentinel errors above map to 404/400/409, fiber errors keep their code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
