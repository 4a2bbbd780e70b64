package handlers

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SundayYogurt/identity_service/internal/dto"
	"github.com/SundayYogurt/identity_service/internal/helper"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 16
)

var nifPattern = regexp.MustCompile(`^\d{8}[A-Z]$`)

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	// Reject display-name forms like "Ana <a@x.com>".
	return err == nil && addr.Address == s
}

func validPassword(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minPasswordLen && n <= maxPasswordLen
}

// validNIF accepts an absent or empty NIF; a present one must be 8 digits and a letter.
func validNIF(nif *string) bool {
	if nif == nil {
		return true
	}
	v := strings.TrimSpace(*nif)
	return v == "" || nifPattern.MatchString(v)
}

func validateCredentials(email, password string) bool {
	return validEmail(email) && validPassword(password)
}

func validateRegister(in dto.RegisterRequest) bool {
	return validateCredentials(in.Email, in.Password) && validNIF(in.NIF)
}

func validateCode(in dto.VerifyCodeRequest) bool {
	return helper.IsCode(in.Code)
}

func validatePersonalData(in dto.UpdatePersonalData) bool {
	return validNIF(in.NIF)
}

func validateCompany(in dto.UpdateCompany) bool {
	c := in.Company
	return c.Number >= 0 && c.Postal >= 0
}
