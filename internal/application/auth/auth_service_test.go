package authservice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	authservice "github.com/papertrade/funds/internal/application/auth"
	"github.com/papertrade/funds/internal/domain"
	"github.com/papertrade/funds/pkg/config"
)

type fakeRevocationRepo struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]domain.RevokedToken
}

func newFakeRevocationRepo() *fakeRevocationRepo {
	return &fakeRevocationRepo{revoked: make(map[uuid.UUID]domain.RevokedToken)}
}

func (f *fakeRevocationRepo) Revoke(ctx context.Context, token domain.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.revoked[token.TokenID]; !ok {
		f.revoked[token.TokenID] = token
	}
	return nil
}

func (f *fakeRevocationRepo) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func (f *fakeRevocationRepo) PurgeExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	now := time.Now()
	for id, token := range f.revoked {
		if token.ExpiresAt.Before(now) {
			delete(f.revoked, id)
			purged++
		}
	}
	return purged, nil
}

func newTestAuthService(repo *fakeRevocationRepo) authservice.IAuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			TokenTTL:        time.Hour,
			RevocationPurge: time.Hour,
		},
	}
	return authservice.NewAuthService(cfg, zerolog.Nop(), repo)
}

func TestGenerateAndVerifyToken(t *testing.T) {
	svc := newTestAuthService(newFakeRevocationRepo())
	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.TokenID == uuid.Nil {
		t.Fatal("token id is nil")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newFakeRevocationRepo())

	if _, err := svc.VerifyToken(context.Background(), "not-a-token"); err == nil {
		t.Fatal("expected garbage token to fail verification")
	}
}

func TestRevokedTokenFailsVerification(t *testing.T) {
	repo := newFakeRevocationRepo()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, uuid.New())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}

	if err := svc.RevokeToken(ctx, claims); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	// Revoking twice is a no-op.
	if err := svc.RevokeToken(ctx, claims); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := svc.VerifyToken(ctx, token); err == nil {
		t.Fatal("revoked token passed verification")
	}
}

func TestPurgeExpiredRevocations(t *testing.T) {
	repo := newFakeRevocationRepo()
	ctx := context.Background()

	_ = repo.Revoke(ctx, domain.RevokedToken{
		TokenID:   uuid.New(),
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	live := uuid.New()
	_ = repo.Revoke(ctx, domain.RevokedToken{
		TokenID:   live,
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour),
	})

	purged, err := repo.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if revoked, _ := repo.IsRevoked(ctx, live); !revoked {
		t.Fatal("live revocation was purged")
	}
}
