package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenType is the discriminator embedded in every reset token so it
// cannot be replayed for any other purpose.
const ResetTokenType = "password_reset"

const DefaultResetTokenTTL = 5 * time.Minute

var (
	ErrResetTokenExpired   = errors.New("reset token expired")
	ErrResetTokenInvalid   = errors.New("reset token invalid")
	ErrResetTokenWrongType = errors.New("token is not a password reset token")
)

// ResetClaims is the self-contained payload of a reset token.
type ResetClaims struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	MoodleURL string `json:"moodleUrl"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

type ResetTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenManager(secret string, ttl time.Duration) *ResetTokenManager {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *ResetTokenManager) TTL() time.Duration { return m.ttl }

func (m *ResetTokenManager) Generate(userID int64, username, email, moodleURL string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := ResetClaims{
		UserID:    userID,
		Username:  username,
		Email:     email,
		MoodleURL: moodleURL,
		Type:      ResetTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, the embedded expiry and the discriminator,
// each failure mapped to its own sentinel.
func (m *ResetTokenManager) Parse(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrResetTokenExpired
		}
		return nil, ErrResetTokenInvalid
	}
	if !token.Valid {
		return nil, ErrResetTokenInvalid
	}
	if claims.Type != ResetTokenType {
		return nil, ErrResetTokenWrongType
	}
	return claims, nil
}
