package handlers

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/SundayYogurt/identity_service/internal/dto"
	"github.com/SundayYogurt/identity_service/internal/helper/utils"
	"github.com/SundayYogurt/identity_service/internal/services"
	pkgutils "github.com/SundayYogurt/identity_service/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const maxLogoSize = 5 * 1024 * 1024 // 5MB

var allowedLogoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// UploadLogo takes form-data image=<file>, normalises it to PNG and stores
// it as the company logo.
func (h *UserHandler) UploadLogo(ctx *fiber.Ctx) error {
	user, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, services.CodeTokenInvalid)
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeNoFileUploaded)
	}

	// validate extension
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedLogoExt[ext] {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidImage)
	}

	// validate size
	if file.Size > maxLogoSize {
		return utils.ResponseError(ctx, fiber.StatusRequestEntityTooLarge, services.CodeInvalidImage)
	}

	f, err := file.Open()
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeNoFileUploaded)
	}
	defer f.Close()

	raw, err := pkgutils.ReadAllLimit(f, maxLogoSize)
	if errors.Is(err, pkgutils.ErrFileTooLarge) {
		return utils.ResponseError(ctx, fiber.StatusRequestEntityTooLarge, services.CodeInvalidImage)
	}
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeNoFileUploaded)
	}

	logo, err := pkgutils.NormalizeLogo(raw, h.opts.LogoMaxWidth)
	if err != nil {
		h.log.InfoContext(ctx.UserContext(), "logo rejected", "user_id", user.ID, "err", err)
		return utils.ResponseError(ctx, fiber.StatusBadRequest, services.CodeInvalidImage)
	}

	name := filepath.Base(file.Filename)
	updated, err := h.svc.UploadLogo(ctx.UserContext(), user.ID, dto.LogoFile{
		Name:       name,
		UploadName: strings.TrimSuffix(name, filepath.Ext(name)) + ".png",
		Data:       logo,
	})
	if err != nil {
		return writeError(ctx, err)
	}
	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.FullProjection(updated))
}
