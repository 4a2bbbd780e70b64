package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unique index names from migrations/00001_create_users.sql.
var constraintFields = map[string]string{
	"uidx_users_email":       FieldEmail,
	"uidx_users_nif":         FieldNIF,
	"uidx_users_company_cif": FieldCIF,
	"uidx_users_code":        FieldCode,
	"users_pkey":             "id",
}

type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, now: time.Now}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "repository.CreateUser"
	if user == nil || user.ID == "" {
		return nil, OpError(op, "nil user")
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translate(op, err)
	}
	return user, nil
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{}
	if err := r.db.WithContext(ctx).First(user, "email = ?", email).Error; err != nil {
		return nil, translate("repository.FindUserByEmail", err)
	}
	return user, nil
}

func (r *userRepository) FindUserById(ctx context.Context, id string) (*domain.User, error) {
	user := &domain.User{}
	if err := r.db.WithContext(ctx).First(user, "id = ?", id).Error; err != nil {
		return nil, translate("repository.FindUserById", err)
	}
	return user, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id string, patch Patch) (*domain.User, error) {
	const op = "repository.UpdateFields"

	values, err := patchColumns(patch)
	if err != nil {
		return nil, OpError(op, err.Error())
	}
	values["updated_at"] = r.now()

	updated := &domain.User{}
	res := r.db.WithContext(ctx).
		Model(updated).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return nil, translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return updated, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id, code string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND status = ? AND attempts > 0 AND code = ?", id, domain.StatusUnverified, code).
		Updates(map[string]any{
			"status":     domain.StatusVerified,
			"attempts":   domain.MaxAttempts,
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return translate("repository.MarkVerified", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *userRepository) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	updated := &domain.User{}
	res := r.db.WithContext(ctx).
		Model(updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "attempts"}}}).
		Where("id = ? AND status = ? AND attempts > 0", id, domain.StatusUnverified).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts - 1"),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return 0, translate("repository.ConsumeAttempt", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, r.classifyMiss(ctx, id)
	}
	return updated.Attempts, nil
}

func (r *userRepository) ReissueCode(ctx context.Context, id, code string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND status = ?", id, domain.StatusUnverified).
		Updates(map[string]any{
			"code":       code,
			"attempts":   domain.MaxAttempts,
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return translate("repository.ReissueCode", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *userRepository) SoftDeleteUser(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"deleted": true, "updated_at": r.now()})
	if res.Error != nil {
		return translate("repository.SoftDeleteUser", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) HardDeleteUser(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return translate("repository.HardDeleteUser", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// classifyMiss tells a missing row apart from a failed condition.
func (r *userRepository) classifyMiss(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate("repository.classifyMiss", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

func patchColumns(patch Patch) (map[string]any, error) {
	switch p := patch.(type) {
	case PersonalDataPatch:
		return map[string]any{
			"name":     p.Name,
			"surnames": p.Surnames,
			"nif":      nullable(p.NIF),
		}, nil
	case CompanyPatch:
		c := p.Company
		return map[string]any{
			"company_name":     c.Name,
			"company_cif":      nullable(c.CIF),
			"company_street":   c.Street,
			"company_number":   c.Number,
			"company_postal":   c.Postal,
			"company_city":     c.City,
			"company_province": c.Province,
			"company_url":      c.URL,
			"company_logo":     c.Logo,
		}, nil
	case LogoPatch:
		return map[string]any{
			"company_logo": p.Logo,
			"company_url":  p.URL,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported patch %T", patch)
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func translate(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ConflictError{Op: op, Field: constraintFields[pgErr.ConstraintName]}
	}
	return fmt.Errorf("%s: %w", op, err)
}
