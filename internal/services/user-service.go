package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"github.com/SundayYogurt/identity_service/internal/dto"
	"github.com/SundayYogurt/identity_service/internal/helper"
	"github.com/SundayYogurt/identity_service/internal/interfaces"
	"github.com/SundayYogurt/identity_service/internal/metrics"
	"github.com/SundayYogurt/identity_service/internal/repository"
	"github.com/google/uuid"
)

// codeAllocationRetries bounds how many fresh codes are tried when the
// generated one collides with another account's code.
const codeAllocationRetries = 5

type UserService interface {
	// Auth
	Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.UserLogin) (*dto.AuthResponse, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	VerifyCode(ctx context.Context, user *domain.User, code string) error

	// Profile
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdatePersonalData(ctx context.Context, userID string, input dto.UpdatePersonalData) (*domain.User, error)
	UpdateCompany(ctx context.Context, userID string, input dto.UpdateCompany) (*domain.User, error)
	UploadLogo(ctx context.Context, userID string, file dto.LogoFile) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string, soft bool) error

	// Admin
	IsAdmin(user *domain.User) bool
	ReissueCode(ctx context.Context, userID string) error
}

type userService struct {
	repo     repository.UserRepository
	hasher   helper.PasswordHasher
	codes    helper.CodeGenerator
	auth     helper.Auth
	uploader interfaces.Uploader
	producer interfaces.ProducerHandler
	log      *slog.Logger
	now      func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	hasher helper.PasswordHasher,
	codes helper.CodeGenerator,
	auth helper.Auth,
	uploader interfaces.Uploader,
	producer interfaces.ProducerHandler,
	log *slog.Logger,
) UserService {
	if codes == nil {
		codes = helper.GenerateCode
	}
	if log == nil {
		log = slog.Default()
	}
	return &userService{
		repo:     repo,
		hasher:   hasher,
		codes:    codes,
		auth:     auth,
		uploader: uploader,
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

// AUTH

func (s *userService) Register(ctx context.Context, input dto.RegisterRequest) (*dto.AuthResponse, error) {
	const op = "services.Register"
	email := helper.NormalizeEmail(input.Email)

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil && existing != nil {
		metrics.Registrations.WithLabelValues("conflict").Inc()
		return nil, newError(op, ErrConflict, CodeEmailAlreadyRegistered)
	}
	if err != nil && !repository.IsNotFound(err) {
		return nil, s.internal(ctx, op, err)
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Surnames:     strings.TrimSpace(input.Surnames),
		NIF:          trimmedOrNil(input.NIF),
		Role:         domain.RoleUser,
		Attempts:     domain.MaxAttempts,
		Status:       domain.StatusUnverified,
	}

	created, err := s.createWithFreshCode(ctx, op, user)
	if err != nil {
		metrics.Registrations.WithLabelValues("failed").Inc()
		return nil, err
	}

	token, err := s.auth.GenerateToken(created)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	s.publishCode(ctx, created)
	metrics.Registrations.WithLabelValues("ok").Inc()
	s.log.InfoContext(ctx, "user registered", "op", op, "user_id", created.ID)

	return authResponse(token, created), nil
}

func (s *userService) createWithFreshCode(ctx context.Context, op string, user *domain.User) (*domain.User, error) {
	for i := 0; i < codeAllocationRetries; i++ {
		code, err := s.codes()
		if err != nil {
			return nil, s.internal(ctx, op, err)
		}
		user.Code = code

		created, err := s.repo.CreateUser(ctx, user)
		if err == nil {
			return created, nil
		}

		switch repository.ConflictField(err) {
		case repository.FieldCode:
			metrics.CodeCollisions.Inc()
			continue
		case repository.FieldEmail:
			// Lost a race with a concurrent registration for the same email.
			return nil, newError(op, ErrConflict, CodeEmailAlreadyRegistered)
		default:
			return nil, s.storeError(ctx, op, err)
		}
	}

	s.log.ErrorContext(ctx, "verification code allocation exhausted", "op", op, "retries", codeAllocationRetries)
	return nil, newError(op, ErrInternal, CodeAllocationFailed)
}

func (s *userService) Login(ctx context.Context, input dto.UserLogin) (*dto.AuthResponse, error) {
	const op = "services.Login"
	email := helper.NormalizeEmail(input.Email)

	user, err := s.repo.FindUserByEmail(ctx, email)
	if repository.IsNotFound(err) || (err == nil && user.Deleted) {
		metrics.Logins.WithLabelValues("unknown_user").Inc()
		return nil, newError(op, ErrNotFound, CodeUserNotExists)
	}
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	ok, err := s.hasher.Verify(ctx, input.Password, user.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}
	if !ok {
		metrics.Logins.WithLabelValues("invalid_password").Inc()
		s.log.InfoContext(ctx, "login rejected", "op", op, "user_id", user.ID)
		return nil, newError(op, ErrUnauthorized, CodeInvalidPassword)
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	return authResponse(token, user), nil
}

// Authenticate resolves a bearer token to the current stored account.
func (s *userService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	const op = "services.Authenticate"

	claims, err := s.auth.VerifyToken(token)
	if errors.Is(err, helper.ErrTokenExpired) {
		return nil, newError(op, ErrUnauthorized, CodeTokenExpired)
	}
	if err != nil {
		return nil, newError(op, ErrUnauthorized, CodeTokenInvalid)
	}

	user, err := s.repo.FindUserById(ctx, claims.UserID)
	if repository.IsNotFound(err) || (err == nil && user.Deleted) {
		return nil, newError(op, ErrUnauthorized, CodeUserNotFound)
	}
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}
	return user, nil
}

// VerifyCode runs one step of the verification state machine:
//
//	status=1                  -> ALREADY_VERIFIED
//	attempts<=0               -> MAX_ATTEMPTS_REACHED, code not compared
//	code matches              -> status=1, attempts=3
//	mismatch, attempts left   -> attempts-1, INVALID_CODE
//	mismatch, none left after -> attempts=0, MAX_ATTEMPTS_REACHED
//
// Both transitions are conditional updates in the store, so concurrent
// submissions for one account cannot over- or under-decrement.
func (s *userService) VerifyCode(ctx context.Context, user *domain.User, code string) error {
	const op = "services.VerifyCode"

	if user == nil {
		return newError(op, ErrUnauthorized, CodeUserNotFound)
	}
	if user.IsVerified() {
		metrics.Verifications.WithLabelValues("already_verified").Inc()
		return newError(op, ErrConflict, CodeAlreadyVerified)
	}
	if user.Attempts <= 0 {
		metrics.Verifications.WithLabelValues("locked").Inc()
		return newError(op, ErrForbidden, CodeMaxAttemptsReached)
	}

	err := s.repo.MarkVerified(ctx, user.ID, code)
	if err == nil {
		metrics.Verifications.WithLabelValues("ok").Inc()
		s.log.InfoContext(ctx, "account verified", "op", op, "user_id", user.ID)
		s.publish(ctx, user.ID, dto.AccountEvent{Type: dto.EventVerified, UserID: user.ID, Email: user.Email, At: s.now()})
		return nil
	}
	if repository.IsNotFound(err) {
		return newError(op, ErrNotFound, CodeUserNotFound)
	}
	if !errors.Is(err, repository.ErrPreconditionFailed) {
		return s.internal(ctx, op, err)
	}

	left, err := s.repo.ConsumeAttempt(ctx, user.ID)
	switch {
	case err == nil && left > 0:
		metrics.Verifications.WithLabelValues("invalid").Inc()
		return newError(op, ErrValidation, CodeInvalidCode)
	case err == nil:
		metrics.Verifications.WithLabelValues("locked").Inc()
		s.log.WarnContext(ctx, "verification attempts exhausted", "op", op, "user_id", user.ID)
		return newError(op, ErrForbidden, CodeMaxAttemptsReached)
	case repository.IsNotFound(err):
		return newError(op, ErrNotFound, CodeUserNotFound)
	case errors.Is(err, repository.ErrPreconditionFailed):
		// Another request changed the account between the two updates.
		return s.settledState(ctx, op, user.ID)
	default:
		return s.internal(ctx, op, err)
	}
}

func (s *userService) settledState(ctx context.Context, op, userID string) error {
	current, err := s.repo.FindUserById(ctx, userID)
	if repository.IsNotFound(err) {
		return newError(op, ErrNotFound, CodeUserNotFound)
	}
	if err != nil {
		return s.internal(ctx, op, err)
	}
	if current.IsVerified() {
		return newError(op, ErrConflict, CodeAlreadyVerified)
	}
	return newError(op, ErrForbidden, CodeMaxAttemptsReached)
}

// PROFILE

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	const op = "services.GetProfile"

	user, err := s.repo.FindUserById(ctx, userID)
	if err != nil {
		return nil, s.storeError(ctx, op, err)
	}
	return user, nil
}

func (s *userService) UpdatePersonalData(ctx context.Context, userID string, input dto.UpdatePersonalData) (*domain.User, error) {
	const op = "services.UpdatePersonalData"

	updated, err := s.repo.UpdateFields(ctx, userID, repository.PersonalDataPatch{
		Name:     strings.TrimSpace(input.Name),
		Surnames: strings.TrimSpace(input.Surnames),
		NIF:      trimmedOrNil(input.NIF),
	})
	if err != nil {
		return nil, s.storeError(ctx, op, err)
	}
	return updated, nil
}

func (s *userService) UpdateCompany(ctx context.Context, userID string, input dto.UpdateCompany) (*domain.User, error) {
	const op = "services.UpdateCompany"

	company := input.Company
	company.CIF = trimmedOrNil(company.CIF)

	updated, err := s.repo.UpdateFields(ctx, userID, repository.CompanyPatch{Company: company})
	if err != nil {
		return nil, s.storeError(ctx, op, err)
	}
	return updated, nil
}

// UploadLogo stores the image with the upload collaborator and records its
// retrieval URL. A failed upload leaves the account untouched.
func (s *userService) UploadLogo(ctx context.Context, userID string, file dto.LogoFile) (*domain.User, error) {
	const op = "services.UploadLogo"

	if len(file.Data) == 0 || file.Name == "" {
		return nil, newError(op, ErrValidation, CodeInvalidInput)
	}
	if s.uploader == nil {
		s.log.ErrorContext(ctx, "uploader is not configured", "op", op)
		return nil, newError(op, ErrUpstream, CodeUploadFailed)
	}

	uploadName := file.UploadName
	if uploadName == "" {
		uploadName = file.Name
	}

	hash, err := s.uploader.UploadBytes(ctx, uploadName, file.Data)
	if err != nil || hash == "" {
		metrics.Uploads.WithLabelValues("failed").Inc()
		s.log.ErrorContext(ctx, "logo upload failed", "op", op, "user_id", userID, "err", err)
		return nil, newError(op, ErrUpstream, CodeUploadFailed)
	}

	url := s.uploader.RetrievalURL(hash)
	if url == "" {
		metrics.Uploads.WithLabelValues("failed").Inc()
		s.log.ErrorContext(ctx, "uploader returned no retrieval url", "op", op, "user_id", userID)
		return nil, newError(op, ErrUpstream, CodeUploadFailed)
	}

	updated, err := s.repo.UpdateFields(ctx, userID, repository.LogoPatch{
		Logo: file.Name,
		URL:  url,
	})
	if err != nil {
		return nil, s.storeError(ctx, op, err)
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	return updated, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID string, soft bool) error {
	const op = "services.DeleteUser"

	user, err := s.repo.FindUserById(ctx, userID)
	if err != nil {
		return s.storeError(ctx, op, err)
	}

	if soft {
		err = s.repo.SoftDeleteUser(ctx, userID)
	} else {
		err = s.repo.HardDeleteUser(ctx, userID)
	}
	if err != nil {
		return s.storeError(ctx, op, err)
	}

	s.log.InfoContext(ctx, "user deleted", "op", op, "user_id", userID, "soft", soft)
	s.publish(ctx, userID, dto.AccountEvent{Type: dto.EventDeleted, UserID: userID, Email: user.Email, Soft: soft, At: s.now()})
	return nil
}

// ADMIN

func (s *userService) IsAdmin(user *domain.User) bool {
	return user != nil && user.IsAdmin()
}

// ReissueCode gives an unverified account a fresh code and a full set of attempts.
func (s *userService) ReissueCode(ctx context.Context, userID string) error {
	const op = "services.ReissueCode"

	for i := 0; i < codeAllocationRetries; i++ {
		code, err := s.codes()
		if err != nil {
			return s.internal(ctx, op, err)
		}

		err = s.repo.ReissueCode(ctx, userID, code)
		switch {
		case err == nil:
			user, err := s.repo.FindUserById(ctx, userID)
			if err != nil {
				return s.storeError(ctx, op, err)
			}
			s.log.InfoContext(ctx, "verification code reissued", "op", op, "user_id", userID)
			s.publishCode(ctx, user)
			return nil
		case repository.ConflictField(err) == repository.FieldCode:
			metrics.CodeCollisions.Inc()
			continue
		case errors.Is(err, repository.ErrPreconditionFailed):
			return newError(op, ErrConflict, CodeAlreadyVerified)
		default:
			return s.storeError(ctx, op, err)
		}
	}

	s.log.ErrorContext(ctx, "verification code allocation exhausted", "op", op, "retries", codeAllocationRetries)
	return newError(op, ErrInternal, CodeAllocationFailed)
}

// helpers

// storeError maps account store failures onto service errors.
func (s *userService) storeError(ctx context.Context, op string, err error) error {
	if repository.IsNotFound(err) {
		return newError(op, ErrNotFound, CodeUserNotFound)
	}
	switch repository.ConflictField(err) {
	case repository.FieldEmail:
		return newError(op, ErrConflict, CodeDuplicateEmail)
	case repository.FieldNIF:
		return newError(op, ErrConflict, CodeDuplicateNIF)
	case repository.FieldCIF:
		return newError(op, ErrConflict, CodeDuplicateCIF)
	case repository.FieldCode:
		return newError(op, ErrConflict, CodeDuplicateCode)
	}
	return s.internal(ctx, op, err)
}

func (s *userService) internal(ctx context.Context, op string, err error) error {
	s.log.ErrorContext(ctx, "unexpected failure", "op", op, "err", err)
	return internalError(op)
}

func (s *userService) publishCode(ctx context.Context, user *domain.User) {
	s.publish(ctx, user.ID, dto.CodeIssuedEvent{
		Type:     dto.EventCodeIssued,
		UserID:   user.ID,
		Email:    user.Email,
		Code:     user.Code,
		IssuedAt: s.now(),
	})
}

// publish is best effort: a broker outage must not fail the request.
func (s *userService) publish(ctx context.Context, userID string, event any) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.WarnContext(ctx, "event encode failed", "user_id", userID, "err", err)
		return
	}
	if err := s.producer.PublishMessage(ctx, []byte(userID), payload); err != nil {
		s.log.WarnContext(ctx, "event publish failed", "user_id", userID, "err", err)
	}
}

func authResponse(token string, u *domain.User) *dto.AuthResponse {
	return &dto.AuthResponse{
		Token: token,
		User: dto.AuthUser{
			Email:  u.Email,
			Role:   u.Role,
			Status: u.Status,
		},
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
