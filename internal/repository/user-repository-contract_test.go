package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var codeSeq struct {
	sync.Mutex
	n int
}

func nextCode() string {
	codeSeq.Lock()
	defer codeSeq.Unlock()
	codeSeq.n++
	return fmt.Sprintf("%06d", codeSeq.n)
}

func newUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Role:         domain.RoleUser,
		Code:         nextCode(),
		Attempts:     domain.MaxAttempts,
		Status:       domain.StatusUnverified,
	}
}

// runUserRepositoryContract exercises behaviour every driver must share.
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("find@x.com")

		created, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())

		byEmail, err := repo.FindUserByEmail(ctx, "find@x.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, u.Code, byEmail.Code)
		assert.Equal(t, domain.MaxAttempts, byEmail.Attempts)

		byID, err := repo.FindUserById(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "find@x.com", byID.Email)

		_, err = repo.FindUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindUserById(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unique email and code", func(t *testing.T) {
		repo := newRepo(t)
		first := newUser("dup@x.com")
		_, err := repo.CreateUser(ctx, first)
		require.NoError(t, err)

		_, err = repo.CreateUser(ctx, newUser("dup@x.com"))
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, FieldEmail, ConflictField(err))

		sameCode := newUser("other@x.com")
		sameCode.Code = first.Code
		_, err = repo.CreateUser(ctx, sameCode)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, FieldCode, ConflictField(err))
	})

	t.Run("verification releases the code", func(t *testing.T) {
		repo := newRepo(t)
		first := newUser("first@x.com")
		_, err := repo.CreateUser(ctx, first)
		require.NoError(t, err)
		require.NoError(t, repo.MarkVerified(ctx, first.ID, first.Code))

		reuse := newUser("reuse@x.com")
		reuse.Code = first.Code
		_, err = repo.CreateUser(ctx, reuse)
		require.NoError(t, err)

		pending := newUser("pending@x.com")
		_, err = repo.CreateUser(ctx, pending)
		require.NoError(t, err)
		err = repo.ReissueCode(ctx, pending.ID, first.Code)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, FieldCode, ConflictField(err))
	})

	t.Run("nif is sparse unique", func(t *testing.T) {
		repo := newRepo(t)
		a, b, c := newUser("a@x.com"), newUser("b@x.com"), newUser("c@x.com")
		for _, u := range []*domain.User{a, b, c} {
			_, err := repo.CreateUser(ctx, u)
			require.NoError(t, err)
		}

		_, err := repo.UpdateFields(ctx, a.ID, PersonalDataPatch{Name: "A", NIF: strPtr("12345678Z")})
		require.NoError(t, err)

		_, err = repo.UpdateFields(ctx, b.ID, PersonalDataPatch{Name: "B", NIF: strPtr("12345678Z")})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, FieldNIF, ConflictField(err))

		// Absent nifs never collide.
		_, err = repo.UpdateFields(ctx, b.ID, PersonalDataPatch{Name: "B"})
		require.NoError(t, err)
		_, err = repo.UpdateFields(ctx, c.ID, PersonalDataPatch{Name: "C"})
		require.NoError(t, err)
	})

	t.Run("personal data overwrites", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("pd@x.com")
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)

		updated, err := repo.UpdateFields(ctx, u.ID, PersonalDataPatch{Name: "Ana", Surnames: "Ruiz", NIF: strPtr("87654321X")})
		require.NoError(t, err)
		assert.Equal(t, "Ana", updated.Name)
		require.NotNil(t, updated.NIF)
		assert.Equal(t, "87654321X", *updated.NIF)

		updated, err = repo.UpdateFields(ctx, u.ID, PersonalDataPatch{})
		require.NoError(t, err)
		assert.Empty(t, updated.Name)
		assert.Empty(t, updated.Surnames)
		assert.Nil(t, updated.NIF)

		_, err = repo.UpdateFields(ctx, uuid.NewString(), PersonalDataPatch{Name: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("company replace and logo", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("co@x.com")
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)

		company := domain.Company{Name: "Acme", CIF: strPtr("B12345678"), City: "Madrid", Number: 4, Logo: "old.png"}
		updated, err := repo.UpdateFields(ctx, u.ID, CompanyPatch{Company: company})
		require.NoError(t, err)
		assert.Equal(t, "Acme", updated.Company.Name)
		assert.Equal(t, "old.png", updated.Company.Logo)

		updated, err = repo.UpdateFields(ctx, u.ID, LogoPatch{Logo: "logo.png", URL: "https://gw/ipfs/Qm1"})
		require.NoError(t, err)
		assert.Equal(t, "logo.png", updated.Company.Logo)
		assert.Equal(t, "https://gw/ipfs/Qm1", updated.Company.URL)
		assert.Equal(t, "Acme", updated.Company.Name)

		updated, err = repo.UpdateFields(ctx, u.ID, CompanyPatch{Company: domain.Company{Name: "New"}})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Company.Name)
		assert.Empty(t, updated.Company.Logo)
		assert.Nil(t, updated.Company.CIF)
	})

	t.Run("verification conditional updates", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("v@x.com")
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)

		assert.ErrorIs(t, repo.MarkVerified(ctx, u.ID, "999999x"), ErrPreconditionFailed)

		left, err := repo.ConsumeAttempt(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, left)

		require.NoError(t, repo.MarkVerified(ctx, u.ID, u.Code))
		got, err := repo.FindUserById(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusVerified, got.Status)
		assert.Equal(t, domain.MaxAttempts, got.Attempts)

		// Verified accounts accept no further transitions.
		assert.ErrorIs(t, repo.MarkVerified(ctx, u.ID, u.Code), ErrPreconditionFailed)
		_, err = repo.ConsumeAttempt(ctx, u.ID)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
		assert.ErrorIs(t, repo.ReissueCode(ctx, u.ID, nextCode()), ErrPreconditionFailed)

		assert.ErrorIs(t, repo.MarkVerified(ctx, uuid.NewString(), "000000"), ErrNotFound)
	})

	t.Run("attempts never go below zero", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("z@x.com")
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ConsumeAttempt(ctx, u.ID); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, domain.MaxAttempts, succeeded)
		got, err := repo.FindUserById(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Attempts)

		// Exhausted: even the right code is refused.
		assert.ErrorIs(t, repo.MarkVerified(ctx, u.ID, u.Code), ErrPreconditionFailed)

		newCode := nextCode()
		require.NoError(t, repo.ReissueCode(ctx, u.ID, newCode))
		got, err = repo.FindUserById(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MaxAttempts, got.Attempts)
		assert.Equal(t, newCode, got.Code)
	})

	t.Run("soft and hard delete", func(t *testing.T) {
		repo := newRepo(t)
		soft, hard := newUser("soft@x.com"), newUser("hard@x.com")
		_, err := repo.CreateUser(ctx, soft)
		require.NoError(t, err)
		_, err = repo.CreateUser(ctx, hard)
		require.NoError(t, err)

		require.NoError(t, repo.SoftDeleteUser(ctx, soft.ID))
		got, err := repo.FindUserById(ctx, soft.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted)

		require.NoError(t, repo.HardDeleteUser(ctx, hard.ID))
		_, err = repo.FindUserById(ctx, hard.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.HardDeleteUser(ctx, hard.ID), ErrNotFound)
		assert.ErrorIs(t, repo.SoftDeleteUser(ctx, hard.ID), ErrNotFound)
	})
}

func TestMemoryUserRepository(t *testing.T) {
	runUserRepositoryContract(t, func(t *testing.T) UserRepository {
		return NewMemoryUserRepository()
	})
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	u := newUser("copy@x.com")
	_, err := repo.CreateUser(context.Background(), u)
	require.NoError(t, err)

	got, err := repo.FindUserById(context.Background(), u.ID)
	require.NoError(t, err)
	got.Attempts = 0

	again, err := repo.FindUserById(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxAttempts, again.Attempts)
}
