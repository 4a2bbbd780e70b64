package handlers

import (
	"log/slog"
	"strconv"

	"github.com/SundayYogurt/identity_service/internal/api/rest/middleware"
	"github.com/SundayYogurt/identity_service/internal/dto"
	"github.com/SundayYogurt/identity_service/internal/helper"
	"github.com/SundayYogurt/identity_service/internal/helper/utils"
	"github.com/SundayYogurt/identity_service/internal/services"
	"github.com/gofiber/fiber/v2"
)

type Options struct {
	// AuthLimiter guards register and login, CodeLimiter guards validation.
	AuthLimiter  fiber.Handler
	CodeLimiter  fiber.Handler
	LogoMaxWidth int
	Logger       *slog.Logger
}

type UserHandler struct {
	svc  services.UserService
	auth helper.Auth
	opts Options
	log  *slog.Logger
}

func NewUserHandler(svc services.UserService, auth helper.Auth, opts Options) *UserHandler {
	pass := func(ctx *fiber.Ctx) error { return ctx.Next() }
	if opts.AuthLimiter == nil {
		opts.AuthLimiter = pass
	}
	if opts.CodeLimiter == nil {
		opts.CodeLimiter = pass
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{svc: svc, auth: auth, opts: opts, log: log}
}

func (h *UserHandler) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")
	authed := middleware.AuthMiddleware(h.svc)

	// =========================
	// AUTH
	// =========================
	auth := api.Group("/auth")

	auth.Post("/register", h.opts.AuthLimiter, h.Register)
	auth.Post("/login", h.opts.AuthLimiter, h.Login)
	auth.Post("/validation", authed, h.opts.CodeLimiter, h.VerifyCode)

	// Profile
	auth.Put("/register", authed, h.UpdatePersonalData)
	auth.Patch("/company", authed, h.UpdateCompany)
	auth.Post("/logo", authed, h.UploadLogo)
	auth.Get("/profile", authed, h.GetProfile)
	auth.Delete("/delete", authed, h.DeleteUser)

	// Admin
	auth.Post("/admin/users/:id/code", authed, middleware.AdminOnly(h.svc), h.ReissueCode)
}

func (h *UserHandler) Register(ctx *fiber.Ctx) error {
	var requestBody dto.RegisterRequest

	if err := ctx.BodyParser(&requestBody); err != nil || !validateRegister(requestBody) {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	res, err := h.svc.Register(ctx.UserContext(), requestBody)
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, res)
}

func (h *UserHandler) Login(ctx *fiber.Ctx) error {
	var requestBody dto.UserLogin

	if err := ctx.BodyParser(&requestBody); err != nil || !validateCredentials(requestBody.Email, requestBody.Password) {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	res, err := h.svc.Login(ctx.UserContext(), requestBody)
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, res)
}

func (h *UserHandler) VerifyCode(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	var requestBody dto.VerifyCodeRequest
	if err := ctx.BodyParser(&requestBody); err != nil || !validateCode(requestBody) {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	if err := h.svc.VerifyCode(ctx.UserContext(), user, requestBody.Code); err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.MessageResponse{Message: "USER_VERIFIED"})
}

func (h *UserHandler) UpdatePersonalData(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	var requestBody dto.UpdatePersonalData
	if err := ctx.BodyParser(&requestBody); err != nil || !validatePersonalData(requestBody) {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	updated, err := h.svc.UpdatePersonalData(ctx.UserContext(), user.ID, requestBody)
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.PersonalProjection(updated))
}

func (h *UserHandler) UpdateCompany(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	var requestBody dto.UpdateCompany
	if err := ctx.BodyParser(&requestBody); err != nil || !validateCompany(requestBody) {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	updated, err := h.svc.UpdateCompany(ctx.UserContext(), user.ID, requestBody)
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.CompanyProjection(updated))
}

func (h *UserHandler) GetProfile(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	profile, err := h.svc.GetProfile(ctx.UserContext(), user.ID)
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.FullProjection(profile))
}

// DeleteUser soft deletes by default; ?soft=false removes the record.
func (h *UserHandler) DeleteUser(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	soft := true
	if raw := ctx.Query("soft"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
		}
		soft = v
	}

	if err := h.svc.DeleteUser(ctx.UserContext(), user.ID, soft); err != nil {
		return writeError(ctx, err)
	}

	msg := "USER_SOFT_DELETED"
	if !soft {
		msg = "USER_DELETED"
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.MessageResponse{Message: msg})
}

func (h *UserHandler) ReissueCode(ctx *fiber.Ctx) error {
	targetID := ctx.Params("id")
	if targetID == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidInput)
	}

	if err := h.svc.ReissueCode(ctx.UserContext(), targetID); err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.MessageResponse{Message: "CODE_REISSUED"})
}

// writeError renders a service error as {"error": CODE}; anything else is a 500.
func writeError(ctx *fiber.Ctx, err error) error {
	if se, ok := services.AsError(err); ok {
		return utils.ResponseError(ctx, se.Status, se.Code)
	}
	return utils.ResponseError(ctx, fiber.StatusInternalServerError, services.CodeInternal)
}
