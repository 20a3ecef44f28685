package domain

import "testing"

func TestBaseCatalogCoversEveryProfession(t *testing.T) {
	for _, profession := range AllProfessions {
		base := BasePermissions(profession)
		if len(base) == 0 {
			t.Fatalf("profession %q has no base catalog entry", profession)
		}
		for perm := range base {
			if _, err := ParsePermission(string(perm)); err != nil {
				t.Fatalf("profession %q carries permission outside the catalog: %v", profession, err)
			}
		}
	}
}

func TestBasePermissionsReturnsCopy(t *testing.T) {
	first := BasePermissions(ProfessionStudent)
	first.Add(PermRoleManage)

	second := BasePermissions(ProfessionStudent)
	if second.Has(PermRoleManage) {
		t.Fatal("mutating a resolved base set must not leak into the catalog")
	}
}

func TestOrganizationCatalogExcludesPlatformAdministration(t *testing.T) {
	for _, perm := range []Permission{PermRoleManage, PermRoleAssign, PermUserManage, PermOrgManage, PermSessionManage, PermAuditRead} {
		if OrganizationCatalog.Has(perm) {
			t.Fatalf("%q must not be org-delegable", perm)
		}
	}
}

func TestPlatformAdminHoldsFullCatalog(t *testing.T) {
	admin := BasePermissions(ProfessionPlatformAdmin)
	for _, perm := range AllPermissions {
		if !admin.Has(perm) {
			t.Fatalf("platform admin missing %q", perm)
		}
	}
}
