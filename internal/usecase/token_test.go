package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

func login(t *testing.T, f *fixture, email, password string) *LoginResult {
	t.Helper()
	result, err := f.auth.Login(context.Background(), LoginInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return result
}

func TestRotateIssuesNewPair(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	pair, session, err := f.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if session.ID != result.Session.ID {
		t.Fatalf("rotation must stay within the session, got %s", session.ID)
	}
	if pair.RefreshToken == result.Tokens.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}
	if pair.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	if events := f.sink.eventsOfType(domain.AuditTokenRotated); len(events) != 1 {
		t.Fatalf("expected one rotation event, got %d", len(events))
	}
}

func TestRotateUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.tokenSvc.Rotate(context.Background(), "never-issued")
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRotateReplayRevokesChainAndSession(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	pair, _, err := f.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	// Presenting the consumed token again is the replay signal.
	_, _, err = f.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected, got %v", err)
	}

	// The session is gone and so is the descendant token.
	session, _ := f.sessions.Get(ctx, result.Session.ID)
	if session.State != domain.SessionTerminated {
		t.Fatal("expected session terminated after reuse")
	}

	_, _, err = f.tokenSvc.Rotate(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrInvalidRefreshToken) && !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected descendant token rejected, got %v", err)
	}

	revoked, _, _ := f.revocations.IsSessionRevoked(ctx, result.Session.ID)
	if !revoked {
		t.Fatal("expected session flagged in the revocation store")
	}

	if events := f.sink.eventsOfType(domain.AuditTokenReuseDetected); len(events) == 0 {
		t.Fatal("expected a reuse detection event")
	}
}

func TestRotateAfterSessionTerminated(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	if err := f.sessionSvc.Terminate(ctx, result.Session.ID, "logout"); err != nil {
		t.Fatalf("Terminate returned error: %v", err)
	}

	// Termination revoked the refresh token as well.
	_, _, err := f.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after termination, got %v", err)
	}
}
