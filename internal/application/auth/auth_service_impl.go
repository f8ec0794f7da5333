package authservice

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/internal/repositories/revocationrepo"
	"github.com/papertrade/funds/pkg/config"
)

const tokenIssuer = "papertrade"

type AuthService struct {
	config         *config.Config
	logger         zerolog.Logger
	revocationRepo revocationrepo.IRevocationRepository
}

func NewAuthService(config *config.Config, logger zerolog.Logger, revocationRepo revocationrepo.IRevocationRepository) IAuthService {
	return &AuthService{
		config:         config,
		logger:         logger,
		revocationRepo: revocationRepo,
	}
}

func (s *AuthService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	jwtSecret := s.config.JWT.Secret
	if jwtSecret == "" {
		s.logger.Error().Msg("JWT secret not configured")
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claim := &domain.Claim{
		UserID:  userID,
		TokenID: uuid.New(),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.config.JWT.TokenTTL).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to sign token")
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*domain.Claim, error) {
	jwtSecret := s.config.JWT.Secret
	if jwtSecret == "" {
		s.logger.Error().Msg("JWT secret not configured")
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &domain.Claim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %v", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*domain.Claim)
	if !ok {
		return nil, fmt.Errorf("invalid claims format")
	}

	if claims.ExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("token expired")
	}

	if claims.Issuer != tokenIssuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	revoked, err := s.revocationRepo.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		s.logger.Error().Err(err).Str("token_id", claims.TokenID.String()).Msg("Failed to check revocation")
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("token revoked")
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(ctx context.Context, claims *domain.Claim) error {
	err := s.revocationRepo.Revoke(ctx, domain.RevokedToken{
		TokenID:   claims.TokenID,
		UserID:    claims.UserID,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("user_id", claims.UserID.String()).
		Str("token_id", claims.TokenID.String()).
		Msg("Token revoked")
	return nil
}

// StartRevocationJanitor periodically deletes revocation rows whose tokens
// have expired. Runs until the context is cancelled.
func (s *AuthService) StartRevocationJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.config.JWT.RevocationPurge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Revocation janitor stopped")
			return
		case <-ticker.C:
			purged, err := s.revocationRepo.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to purge expired revocations")
				continue
			}
			if purged > 0 {
				s.logger.Info().Int64("purged", purged).Msg("Purged expired token revocations")
			}
		}
	}
}
