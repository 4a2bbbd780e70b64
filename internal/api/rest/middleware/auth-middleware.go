package middleware

import (
	"strings"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"github.com/SundayYogurt/identity_service/internal/helper/utils"
	"github.com/SundayYogurt/identity_service/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware resolves the bearer token to the stored account and puts it
// in Locals("user").
func AuthMiddleware(svc services.UserService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		// 1) try cookie first
		tokenStr := strings.TrimSpace(ctx.Cookies("access_token"))

		// 2) fallback to Authorization header
		if tokenStr == "" {
			tokenStr = strings.TrimSpace(ctx.Get(fiber.HeaderAuthorization))
		}
		if tokenStr == "" {
			return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
		}

		user, err := svc.Authenticate(ctx.UserContext(), tokenStr)
		if err != nil {
			status, code := fiber.StatusUnauthorized, services.CodeTokenInvalid
			if se, ok := services.AsError(err); ok {
				status, code = se.Status, se.Code
			}
			return utils.ResponseError(ctx, status, code)
		}

		ctx.Locals("userID", user.ID)
		ctx.Locals("user", user)
		return ctx.Next()
	}
}

func AdminOnly(svc services.UserService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		user, ok := ctx.Locals("user").(*domain.User)
		if !ok || user == nil {
			return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
		}

		if !svc.IsAdmin(user) {
			return utils.ResponseError(ctx, fiber.StatusForbidden, services.CodeNotAnAdmin)
		}

		return ctx.Next()
	}
}
