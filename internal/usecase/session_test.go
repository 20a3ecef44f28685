package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

func TestSwitchProfessionReissuesTokens(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)
	f.grantProfession(t, user.ID, domain.ProfessionStudent, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	session, pair, err := f.sessionSvc.SwitchProfession(ctx, result.Session.ID, "student")
	if err != nil {
		t.Fatalf("SwitchProfession returned error: %v", err)
	}
	if session.ActiveProfession != domain.ProfessionStudent {
		t.Fatalf("unexpected active profession: %s", session.ActiveProfession)
	}
	if pair == nil || pair.AccessToken == "" {
		t.Fatal("expected a fresh token pair after role switch")
	}

	// The new access token carries the new role.
	principal, err := f.auth.ParseAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if principal.Profession != domain.ProfessionStudent {
		t.Fatalf("expected student in token, got %s", principal.Profession)
	}

	// The pre-switch refresh token died with the switch.
	_, _, err = f.tokenSvc.Rotate(ctx, result.Tokens.RefreshToken)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected old refresh token revoked, got %v", err)
	}

	// Cached permissions for the old role are unreachable.
	version, _ := f.versions.GetSubjectVersion(ctx, user.ID)
	if version != 1 {
		t.Fatalf("expected subject version bump, got %d", version)
	}

	if events := f.sink.eventsOfType(domain.AuditRoleSwitched); len(events) != 1 {
		t.Fatalf("expected one role switch event, got %d", len(events))
	}
}

func TestSwitchProfessionWithoutAssignment(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	_, _, err := f.sessionSvc.SwitchProfession(context.Background(), result.Session.ID, "notary")
	if !errors.Is(err, ErrRoleNotGranted) {
		t.Fatalf("expected ErrRoleNotGranted, got %v", err)
	}
}

func TestSwitchProfessionUnknownValue(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	_, _, err := f.sessionSvc.SwitchProfession(context.Background(), result.Session.ID, "astronaut")
	if !errors.Is(err, ErrRoleNotGranted) {
		t.Fatalf("expected ErrRoleNotGranted, got %v", err)
	}
}

func TestSwitchProfessionOnTerminatedSession(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)
	f.grantProfession(t, user.ID, domain.ProfessionStudent, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	if err := f.sessionSvc.Terminate(ctx, result.Session.ID, "logout"); err != nil {
		t.Fatalf("Terminate returned error: %v", err)
	}

	_, _, err := f.sessionSvc.SwitchProfession(ctx, result.Session.ID, "student")
	if !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	result := login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	if err := f.sessionSvc.Terminate(ctx, result.Session.ID, "logout"); err != nil {
		t.Fatalf("first Terminate returned error: %v", err)
	}
	if err := f.sessionSvc.Terminate(ctx, result.Session.ID, "logout"); err != nil {
		t.Fatalf("second Terminate must be a no-op, got %v", err)
	}

	if events := f.sink.eventsOfType(domain.AuditSessionTerminated); len(events) != 1 {
		t.Fatalf("expected exactly one termination event, got %d", len(events))
	}
}

func TestTerminateAllEndsEverySession(t *testing.T) {
	user := newTestUser(t, "user-1", "avocat@example.dz", "S3cure-Passw0rd!")
	f := newFixture(t, user)
	f.grantProfession(t, user.ID, domain.ProfessionLawyer, nil)

	login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")
	login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")
	login(t, f, "avocat@example.dz", "S3cure-Passw0rd!")

	ctx := context.Background()
	count, err := f.sessionSvc.TerminateAll(ctx, user.ID, "logout_all")
	if err != nil {
		t.Fatalf("TerminateAll returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 sessions terminated, got %d", count)
	}

	sessions, _ := f.sessionSvc.List(ctx, user.ID)
	for _, session := range sessions {
		if session.State != domain.SessionTerminated {
			t.Fatalf("session %s still active", session.ID)
		}
		revoked, _, _ := f.revocations.IsSessionRevoked(ctx, session.ID)
		if !revoked {
			t.Fatalf("session %s not flagged in the revocation store", session.ID)
		}
	}
}
