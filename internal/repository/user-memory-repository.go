package repository

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
)

// memoryUserRepository keeps accounts in process memory. It enforces the same
// unique indexes as the persistent drivers and serializes all mutations.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
	now   func() time.Time
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users: make(map[string]*domain.User),
		now:   time.Now,
	}
}

func (r *memoryUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "repository.CreateUser"
	if user == nil || user.ID == "" {
		return nil, OpError(op, "nil user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return nil, ConflictError{Op: op, Field: "id"}
	}
	if field := r.conflictLocked(user, ""); field != "" {
		return nil, ConflictError{Op: op, Field: field}
	}

	now := r.now()
	stored := clone(user)
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.users[user.ID] = stored

	return clone(stored), nil
}

func (r *memoryUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) FindUserById(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (r *memoryUserRepository) UpdateFields(ctx context.Context, id string, patch Patch) (*domain.User, error) {
	const op = "repository.UpdateFields"

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := clone(u)
	switch p := patch.(type) {
	case PersonalDataPatch:
		next.Name, next.Surnames, next.NIF = p.Name, p.Surnames, cloneStr(p.NIF)
	case CompanyPatch:
		next.Company = p.Company
		next.Company.CIF = cloneStr(p.Company.CIF)
	case LogoPatch:
		next.Company.Logo, next.Company.URL = p.Logo, p.URL
	default:
		return nil, OpError(op, "unsupported patch")
	}

	if field := r.conflictLocked(next, id); field != "" {
		return nil, ConflictError{Op: op, Field: field}
	}

	next.UpdatedAt = r.now()
	r.users[id] = next
	return clone(next), nil
}

func (r *memoryUserRepository) MarkVerified(ctx context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if u.Status != domain.StatusUnverified || u.Attempts <= 0 ||
		subtle.ConstantTimeCompare([]byte(u.Code), []byte(code)) != 1 {
		return ErrPreconditionFailed
	}

	u.Status = domain.StatusVerified
	u.Attempts = domain.MaxAttempts
	u.UpdatedAt = r.now()
	return nil
}

func (r *memoryUserRepository) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	if u.Status != domain.StatusUnverified || u.Attempts <= 0 {
		return 0, ErrPreconditionFailed
	}

	u.Attempts--
	u.UpdatedAt = r.now()
	return u.Attempts, nil
}

func (r *memoryUserRepository) ReissueCode(ctx context.Context, id, code string) error {
	const op = "repository.ReissueCode"

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if u.Status != domain.StatusUnverified {
		return ErrPreconditionFailed
	}
	for otherID, other := range r.users {
		if otherID != id && holdsCode(other) && other.Code == code {
			return ConflictError{Op: op, Field: FieldCode}
		}
	}

	u.Code = code
	u.Attempts = domain.MaxAttempts
	u.UpdatedAt = r.now()
	return nil
}

func (r *memoryUserRepository) SoftDeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Deleted = true
	u.UpdatedAt = r.now()
	return nil
}

func (r *memoryUserRepository) HardDeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// conflictLocked returns the first unique field u would collide on, ignoring selfID.
func (r *memoryUserRepository) conflictLocked(u *domain.User, selfID string) string {
	for id, other := range r.users {
		if id == selfID {
			continue
		}
		switch {
		case other.Email == u.Email:
			return FieldEmail
		case holdsCode(other) && holdsCode(u) && other.Code == u.Code:
			return FieldCode
		case sameSparse(other.NIF, u.NIF):
			return FieldNIF
		case sameSparse(other.Company.CIF, u.Company.CIF):
			return FieldCIF
		}
	}
	return ""
}

// holdsCode reports whether u's code still counts towards uniqueness.
// Verification releases it.
func holdsCode(u *domain.User) bool {
	return u.Status == domain.StatusUnverified
}

// sameSparse treats absent values as never colliding.
func sameSparse(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.NIF = cloneStr(u.NIF)
	c.Company.CIF = cloneStr(u.Company.CIF)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
