package helper

import (
	"errors"
	"strings"
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims is what a bearer token asserts about its holder. It reflects
// the account at issuance time; later changes are not visible until a new
// token is issued.
type TokenClaims struct {
	UserID string        `json:"_id"`
	Email  string        `json:"email"`
	Role   domain.Role   `json:"role"`
	Status domain.Status `json:"status"`
	jwt.RegisteredClaims
}

type Auth struct {
	Secret string
	TTL    time.Duration
	now    func() time.Time
}

func SetupAuth(secret string, ttl time.Duration) Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return Auth{
		Secret: secret,
		TTL:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of a that reads time from now.
func (a Auth) WithClock(now func() time.Time) Auth {
	a.now = now
	return a
}

func (a Auth) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

func (a Auth) GenerateToken(user *domain.User) (string, error) {
	if user == nil || user.ID == "" || user.Email == "" {
		return "", errors.New("required inputs are missing to generate token")
	}

	now := a.clock()
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}

	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Secret))
	if err != nil {
		return "", errors.New("unable to sign the token")
	}
	return tokenStr, nil
}

// VerifyToken accepts both "Bearer <token>" and a bare token.
func (a Auth) VerifyToken(tokenString string) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if strings.HasPrefix(strings.ToLower(tokenString), "bearer ") {
		tokenString = strings.TrimSpace(tokenString[len("bearer "):])
	}
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(a.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GetCurrentUser returns the account the auth middleware resolved for this request.
func (a Auth) GetCurrentUser(ctx *fiber.Ctx) (*domain.User, error) {
	user, ok := ctx.Locals("user").(*domain.User)
	if !ok || user == nil {
		return nil, errors.New("missing auth user in context")
	}
	return user, nil
}
