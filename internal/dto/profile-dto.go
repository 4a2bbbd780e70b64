package dto

import (
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
)

type UpdatePersonalData struct {
	Name     string  `json:"name"`
	Surnames string  `json:"surnames"`
	NIF      *string `json:"nif"`
}

type UpdateCompany struct {
	Company domain.Company `json:"company"`
}

// LogoFile is a company logo ready for storage. Name is what the account
// records; UploadName is the name the stored bytes go out under.
type LogoFile struct {
	Name       string
	UploadName string
	Data       []byte
}

// UserProfileResponse is the public projection of an account. Password
// hash, verification code and attempts are never part of it.
type UserProfileResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Surnames  string          `json:"surnames"`
	NIF       *string         `json:"nif,omitempty"`
	Role      domain.Role     `json:"role"`
	Status    domain.Status   `json:"status"`
	Company   *domain.Company `json:"company,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// PersonalProjection is what a personal data update returns.
func PersonalProjection(u *domain.User) UserProfileResponse {
	return UserProfileResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Surnames: u.Surnames,
		NIF:      u.NIF,
		Role:     u.Role,
		Status:   u.Status,
	}
}

// CompanyProjection adds the company sub-record.
func CompanyProjection(u *domain.User) UserProfileResponse {
	p := PersonalProjection(u)
	company := u.Company
	p.Company = &company
	return p
}

// FullProjection is the stored record minus secrets, used by profile reads
// and logo uploads.
func FullProjection(u *domain.User) UserProfileResponse {
	p := CompanyProjection(u)
	p.Deleted = u.Deleted
	createdAt, updatedAt := u.CreatedAt, u.UpdatedAt
	p.CreatedAt, p.UpdatedAt = &createdAt, &updatedAt
	return p
}
