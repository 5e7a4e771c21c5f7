package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Kind    string `validate:"required,oneof=note quiz"`
	Content string `validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Kind: "note", Content: "x"}))

	err := ValidateRequest(sampleRequest{Kind: "poem"})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "Kind must satisfy oneof=note quiz")
	assert.Contains(t, fe.Message, "Content is required")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(*fiber.Ctx) error { return fmt.Errorf("job 1: %w", ErrNotFound) })
	app.Get("/busy", func(*fiber.Ctx) error { return fmt.Errorf("job 1: %w", ErrConflict) })
	app.Get("/boom", func(*fiber.Ctx) error { return fmt.Errorf("db down") })
	app.Get("/teapot", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	cases := []struct {
		path    string
		code    int
		message string
	}{
		{"/missing", 404, "job 1: resource not found"},
		{"/busy", 409, "job 1: conflict"},
		{"/boom", 500, "internal server error"},
		{"/teapot", 418, "short and stout"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.code, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out Response[any]
			require.NoError(t, json.Unmarshal(body, &out))
			assert.False(t, out.Success)
			assert.Equal(t, tc.message, out.Message)
		})
	}
}
