package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

type TokenPurpose string

const (
	PurposeSession       TokenPurpose = "session"
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

type Claims struct {
	ID      string       `json:"_id"`
	Email   string       `json:"email"`
	Purpose TokenPurpose `json:"purpose"`
	jwt.StandardClaims
}

// TokenManager signs and checks HS256 tokens carrying an account id and
// email.
type TokenManager struct {
	key        []byte
	issuer     string
	sessionTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, sessionTTL time.Duration) *TokenManager {
	return &TokenManager{
		key:        []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (tm *TokenManager) generate(id, email string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := &Claims{
		ID:      id,
		Email:   email,
		Purpose: purpose,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tm.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return tokenString, nil
}

func (tm *TokenManager) Session(id, email string) (string, error) {
	return tm.generate(id, email, PurposeSession, tm.sessionTTL)
}

func (tm *TokenManager) Verification(id, email string) (string, error) {
	return tm.generate(id, email, PurposeVerifyEmail, VerificationTokenTTL)
}

func (tm *TokenManager) PasswordReset(id, email string) (string, error) {
	return tm.generate(id, email, PurposeResetPassword, ResetTokenTTL)
}

// Validate checks the signature, expiry and purpose of tokenStr.
func (tm *TokenManager) Validate(tokenStr string, purpose TokenPurpose) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return tm.key, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
