package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/Habibmosta/juristdz-sub017/internal/core/domain"
)

func principalFor(userID string, profession domain.Profession, orgID *string) domain.Principal {
	return domain.Principal{
		UserID:         userID,
		Profession:     profession,
		OrganizationID: orgID,
		SessionID:      "session-1",
	}
}

func (f *fixture) grantCustomRole(t *testing.T, roleID, orgID, userID string, permissions, denies []domain.Permission) {
	t.Helper()
	now := time.Now().UTC().Add(-time.Hour)
	f.customRoles.roles[roleID] = &domain.CustomRole{
		ID:             roleID,
		OrganizationID: orgID,
		Name:           roleID,
		Permissions:    permissions,
		Denies:         denies,
		CreatedBy:      "admin-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.customRoles.grants = append(f.customRoles.grants, domain.CustomRoleGrant{
		ID:           "grant-" + roleID + "-" + userID,
		CustomRoleID: roleID,
		UserID:       userID,
		GrantedBy:    "admin-1",
		GrantedAt:    now,
	})
}

func TestCheckBaseRoleGrant(t *testing.T) {
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionLawyer, nil)

	decision, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionLawyer, nil), domain.PermCaseRead, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow, got %+v", decision)
	}
	if decision.Reason != domain.DecisionReasonBaseRole {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestCheckDeniesOutsideBaseSet(t *testing.T) {
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionStudent, nil)

	decision, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionStudent, nil), domain.PermBillingRead, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("student must not read billing")
	}
	if decision.Reason != domain.DecisionReasonDenied {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestCheckCustomRoleExtendsBase(t *testing.T) {
	orgID := "org-1"
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionStudent, &orgID)
	f.grantCustomRole(t, "case-worker", orgID, "user-1", []domain.Permission{domain.PermCaseCreate}, nil)

	decision, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionStudent, &orgID), domain.PermCaseCreate, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected custom role to grant case:create, got %+v", decision)
	}
	if decision.Reason != domain.DecisionReasonCustomRole {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestCheckCustomRoleCannotEscalateBeyondCatalog(t *testing.T) {
	orgID := "org-1"
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionStudent, &orgID)
	// A tampered row carrying a platform administration permission.
	f.grantCustomRole(t, "rogue", orgID, "user-1", []domain.Permission{domain.PermRoleManage}, nil)

	decision, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionStudent, &orgID), domain.PermRoleManage, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("custom role must never grant beyond the organization catalog")
	}
}

func TestCheckExplicitDenyOverridesBaseGrant(t *testing.T) {
	orgID := "org-1"
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionLawyer, &orgID)
	f.grantCustomRole(t, "restricted", orgID, "user-1", nil, []domain.Permission{domain.PermCaseDelete})

	decision, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionLawyer, &orgID), domain.PermCaseDelete, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("explicit deny must override the base grant")
	}
	if decision.Reason != domain.DecisionReasonExplicitDeny {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestCheckOwnershipPredicate(t *testing.T) {
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionLawyer, nil)

	ctx := context.Background()
	principal := principalFor("user-1", domain.ProfessionLawyer, nil)

	// Someone else's report.
	decision, err := f.engine.Check(ctx, principal, domain.PermReportRead, &domain.ResourceContext{OwnerID: "user-2"})
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("ownership-restricted permission must not reach foreign records")
	}
	if decision.Reason != domain.DecisionReasonNotOwner {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}

	// Missing resource context fails closed.
	decision, err = f.engine.Check(ctx, principal, domain.PermReportRead, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("missing resource context must fail the ownership predicate")
	}

	// Own record passes.
	decision, err = f.engine.Check(ctx, principal, domain.PermReportRead, &domain.ResourceContext{OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected owner to pass, got %+v", decision)
	}
}

func TestCheckAdminBypassesOwnership(t *testing.T) {
	f := newFixture(t)
	f.grantProfession(t, "admin-1", domain.ProfessionPlatformAdmin, nil)

	decision, err := f.engine.Check(context.Background(),
		principalFor("admin-1", domain.ProfessionPlatformAdmin, nil),
		domain.PermReportRead,
		&domain.ResourceContext{OwnerID: "user-2"},
	)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("platform admin bypasses ownership, got %+v", decision)
	}
}

func TestCheckUnauthenticatedPrincipal(t *testing.T) {
	f := newFixture(t)

	decision, err := f.engine.Check(context.Background(), domain.Principal{}, domain.PermCaseRead, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("empty principal must be denied")
	}
	if decision.Reason != domain.DecisionReasonUnauthenticated {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestCheckRevokedAssignmentDeniesEverything(t *testing.T) {
	f := newFixture(t)
	assignment := f.grantProfession(t, "user-1", domain.ProfessionLawyer, nil)

	ctx := context.Background()
	if err := f.assignments.Revoke(ctx, assignment.ID, "admin-1", time.Now().UTC()); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	decision, err := f.engine.Check(ctx, principalFor("user-1", domain.ProfessionLawyer, nil), domain.PermCaseRead, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("revoked assignment must deny the whole base set")
	}
}

func TestVersionBumpInvalidatesCachedPermissions(t *testing.T) {
	orgID := "org-1"
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionStudent, &orgID)

	ctx := context.Background()
	principal := principalFor("user-1", domain.ProfessionStudent, &orgID)

	// Prime the cache without the custom role.
	decision, err := f.engine.Check(ctx, principal, domain.PermCaseCreate, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allow {
		t.Fatal("expected deny before the grant")
	}

	// Grant a custom role and bump the subject version, as RoleService does.
	f.grantCustomRole(t, "case-worker", orgID, "user-1", []domain.Permission{domain.PermCaseCreate}, nil)
	if _, err := f.versions.BumpSubjectVersion(ctx, "user-1"); err != nil {
		t.Fatalf("BumpSubjectVersion returned error: %v", err)
	}

	// The cached deny is unreachable under the new version.
	decision, err = f.engine.Check(ctx, principal, domain.PermCaseCreate, nil)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow after version bump, got %+v", decision)
	}
}

func TestCheckRecordsDecision(t *testing.T) {
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionLawyer, nil)

	if _, err := f.engine.Check(context.Background(), principalFor("user-1", domain.ProfessionLawyer, nil), domain.PermCaseRead, nil); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	if len(f.sink.decisions) != 1 {
		t.Fatalf("expected one decision record, got %d", len(f.sink.decisions))
	}
	record := f.sink.decisions[0]
	if record.Resource != "case" || record.Action != "read" || !record.Outcome {
		t.Fatalf("unexpected decision record: %+v", record)
	}
	if record.CatalogVersion == "" {
		t.Fatal("decision record must carry the catalog version")
	}
}

func TestListEffectivePermissions(t *testing.T) {
	orgID := "org-1"
	f := newFixture(t)
	f.grantProfession(t, "user-1", domain.ProfessionStudent, &orgID)
	f.grantCustomRole(t, "case-worker", orgID, "user-1", []domain.Permission{domain.PermCaseCreate}, []domain.Permission{domain.PermDocumentRead})

	grants, denies, err := f.engine.ListEffective(context.Background(), principalFor("user-1", domain.ProfessionStudent, &orgID))
	if err != nil {
		t.Fatalf("ListEffective returned error: %v", err)
	}

	hasCaseCreate := false
	for _, perm := range grants {
		if perm == domain.PermCaseCreate {
			hasCaseCreate = true
		}
	}
	if !hasCaseCreate {
		t.Fatalf("expected case:create in grants, got %v", grants)
	}
	if len(denies) != 1 || denies[0] != domain.PermDocumentRead {
		t.Fatalf("unexpected denies: %v", denies)
	}
}
