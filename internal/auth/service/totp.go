package service

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aegisauth/aegis/internal/auth/domain"
)

// TOTPService wraps time-based one-time-password generation and validation.
// The parameters are the interoperable defaults every authenticator app
// implements: 30s period, 6 digits, SHA-1.
type TOTPService struct {
	// Issuer is the label shown in authenticator apps.
	Issuer string

	// Skew is the number of adjacent periods accepted either side of now,
	// absorbing client clock drift.
	Skew uint

	// Now is the clock, swappable in tests. Nil means time.Now.
	Now func() time.Time
}

func NewTOTPService(issuer string) *TOTPService {
	return &TOTPService{Issuer: issuer, Skew: 1}
}

func (s *TOTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Generate creates a fresh enrollment secret and provisioning URI for the
// account. The secret stays a candidate until the first code verifies.
func (s *TOTPService) Generate(account string) (domain.TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account,
	})
	if err != nil {
		return domain.TOTPEnrollment{}, err
	}

	return domain.TOTPEnrollment{
		Secret:  key.Secret(),
		URI:     key.URL(),
		Issuer:  s.Issuer,
		Account: account,
	}, nil
}

// Verify checks a submitted code against the stored secret at the current
// time.
func (s *TOTPService) Verify(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      s.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
