package repository

import (
	"context"

	"github.com/SundayYogurt/identity_service/internal/domain"
)

// UserRepository is the account store. Every operation touches a single
// record; the conditional updates are what keep verification race free.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserById(ctx context.Context, id string) (*domain.User, error)

	// UpdateFields applies patch atomically and returns the updated record.
	UpdateFields(ctx context.Context, id string, patch Patch) (*domain.User, error)

	// MarkVerified sets status=1 and attempts=3 only when the account is
	// unverified, has attempts left and code matches.
	MarkVerified(ctx context.Context, id, code string) error
	// ConsumeAttempt decrements attempts only when the account is unverified
	// and attempts > 0, returning what is left.
	ConsumeAttempt(ctx context.Context, id string) (int, error)
	// ReissueCode replaces the code and restores attempts on an unverified account.
	ReissueCode(ctx context.Context, id, code string) error

	SoftDeleteUser(ctx context.Context, id string) error
	HardDeleteUser(ctx context.Context, id string) error
}

// Patch enumerates the fields one operation may change.
type Patch interface {
	patch()
}

// PersonalDataPatch overwrites name, surnames and nif. A nil NIF clears it.
type PersonalDataPatch struct {
	Name     string
	Surnames string
	NIF      *string
}

// CompanyPatch replaces the whole company sub-record.
type CompanyPatch struct {
	Company domain.Company
}

// LogoPatch sets the company logo file name and its retrieval URL.
type LogoPatch struct {
	Logo string
	URL  string
}

func (PersonalDataPatch) patch() {}
func (CompanyPatch) patch()      {}
func (LogoPatch) patch()         {}
