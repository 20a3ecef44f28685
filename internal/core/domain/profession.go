package domain

import (
	"fmt"
	"strings"
)

// Profession is the closed enumeration of professional identities that forms
// the base RBAC role. Extending it requires updating AllProfessions and
// baseProfessionPermissions together; a catalog test enforces exhaustiveness.
type Profession string

const (
	ProfessionLawyer          Profession = "lawyer"
	ProfessionNotary          Profession = "notary"
	ProfessionBailiff         Profession = "bailiff"
	ProfessionMagistrate      Profession = "magistrate"
	ProfessionStudent         Profession = "student"
	ProfessionCorporateJurist Profession = "corporate-jurist"
	ProfessionPlatformAdmin   Profession = "platform-admin"
)

// AllProfessions enumerates every Profession variant.
var AllProfessions = []Profession{
	ProfessionLawyer,
	ProfessionNotary,
	ProfessionBailiff,
	ProfessionMagistrate,
	ProfessionStudent,
	ProfessionCorporateJurist,
	ProfessionPlatformAdmin,
}

var professionIndex = func() map[Profession]struct{} {
	idx := make(map[Profession]struct{}, len(AllProfessions))
	for _, p := range AllProfessions {
		idx[p] = struct{}{}
	}
	return idx
}()

// ParseProfession validates an incoming string at the system boundary.
func ParseProfession(raw string) (Profession, error) {
	p := Profession(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := professionIndex[p]; !ok {
		return "", fmt.Errorf("unknown profession %q", raw)
	}
	return p, nil
}

// IsAdmin reports whether the profession carries platform-wide authority.
func (p Profession) IsAdmin() bool {
	return p == ProfessionPlatformAdmin
}

var baseProfessionPermissions = map[Profession]PermissionSet{
	ProfessionLawyer: NewPermissionSet(
		PermCaseRead, PermCaseCreate, PermCaseUpdate, PermCaseDelete,
		PermDocumentRead, PermDocumentGenerate,
		PermBillingRead, PermBillingCreate,
		PermSearchQuery,
		PermReportRead, PermReportGenerate,
	),
	ProfessionNotary: NewPermissionSet(
		PermCaseRead, PermCaseCreate, PermCaseUpdate,
		PermDocumentRead, PermDocumentGenerate,
		PermBillingRead, PermBillingCreate,
		PermSearchQuery,
		PermMinutierRead, PermMinutierManage,
		PermReportRead, PermReportGenerate,
	),
	ProfessionBailiff: NewPermissionSet(
		PermCaseRead, PermCaseCreate, PermCaseUpdate,
		PermDocumentRead, PermDocumentGenerate,
		PermBillingRead, PermBillingCreate,
		PermSearchQuery,
		PermReportRead,
	),
	ProfessionMagistrate: NewPermissionSet(
		PermCaseRead,
		PermDocumentRead,
		PermSearchQuery,
		PermModerationModerate,
		PermReportRead,
	),
	ProfessionStudent: NewPermissionSet(
		PermSearchQuery,
		PermDocumentRead,
	),
	ProfessionCorporateJurist: NewPermissionSet(
		PermCaseRead, PermCaseCreate, PermCaseUpdate,
		PermDocumentRead, PermDocumentGenerate,
		PermSearchQuery,
		PermReportRead, PermReportGenerate,
	),
	ProfessionPlatformAdmin: NewPermissionSet(AllPermissions...),
}

// BasePermissions resolves the static catalog entry for a profession. The
// returned set is a copy; callers may mutate it freely.
func BasePermissions(p Profession) PermissionSet {
	base, ok := baseProfessionPermissions[p]
	if !ok {
		return PermissionSet{}
	}
	copied := make(PermissionSet, len(base))
	for perm := range base {
		copied[perm] = struct{}{}
	}
	return copied
}
