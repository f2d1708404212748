package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// TokenService provides JWT token generation and validation
type TokenService struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewTokenService creates a new TokenService with the given secret key and token TTL
func NewTokenService(secretKey string, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
	}
}

// Generate issues a JWT for the given user
func (s *TokenService) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"company_id": user.CompanyID.String(),
		"email":      user.Email,
		"role":       string(user.Role),
		"exp":        now.Add(s.tokenTTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// Validate validates a JWT and returns the identity it encodes
func (s *TokenService) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	userStr, _ := claims["user_id"].(string)
	companyStr, _ := claims["company_id"].(string)
	email, _ := claims["email"].(string)
	roleStr, _ := claims["role"].(string)

	userID, err := uuid.Parse(userStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	companyID, err := uuid.Parse(companyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid company_id claim: %w", err)
	}

	role := models.Role(roleStr)
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role claim: %q", roleStr)
	}

	return &Identity{
		UserID:    userID,
		CompanyID: companyID,
		Email:     email,
		Role:      role,
	}, nil
}
