package auth

import (
	"net/mail"
	"strings"
)

// ValidateEmail checks that s is a bare address such as "a@b.com".
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return invalid("email", "Enter a valid email address")
	}
	return nil
}

func required(field, label, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "%s is required", label)
	}
	return nil
}

func validateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return required("password", "Password", password)
}

func validateRegister(name, email, password string) error {
	if err := required("name", "Name", name); err != nil {
		return err
	}
	return validateLogin(email, password)
}

func validateOTP(email, code string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return required("code", "Code", code)
}
