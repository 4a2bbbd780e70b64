package utils

import "github.com/gofiber/fiber/v2"

// ResponseError writes {"error": code}. Codes are stable identifiers, never
// free text built from internal errors.
func ResponseError(ctx *fiber.Ctx, status int, code string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"error": code,
	})
}

// ResponseSuccess writes data as the JSON body.
func ResponseSuccess(ctx *fiber.Ctx, status int, data interface{}) error {
	return ctx.Status(status).JSON(data)
}
