package registry

import (
	"menedzer-sesji/internal/auth"
	"menedzer-sesji/internal/models"
)

// PermissionOverride can pre-empt the base permission rule. A nil result
// means "no opinion" and falls through to the base rule.
type PermissionOverride func(principal *auth.AppClaims, session *models.LoginSession) *bool

// Authorizer decides who may act on which login session. View, edit and
// delete share a single rule; there is no per-action policy.
type Authorizer struct {
	Override PermissionOverride
}

func (a *Authorizer) CanView(principal *auth.AppClaims, session *models.LoginSession) bool {
	return a.handlePermission(principal, session)
}

func (a *Authorizer) CanEdit(principal *auth.AppClaims, session *models.LoginSession) bool {
	return a.handlePermission(principal, session)
}

func (a *Authorizer) CanDelete(principal *auth.AppClaims, session *models.LoginSession) bool {
	return a.handlePermission(principal, session)
}

// CanCreate guards the administrative create path only. Login-time Generate
// is invoked by the authentication flow itself and does not pass through
// here.
func (a *Authorizer) CanCreate(principal *auth.AppClaims) bool {
	return principal != nil && principal.HasCapability(models.CapabilitySecurityAdmin)
}

func (a *Authorizer) handlePermission(principal *auth.AppClaims, session *models.LoginSession) bool {
	if a.Override != nil {
		if verdict := a.Override(principal, session); verdict != nil {
			return *verdict
		}
	}
	if principal == nil {
		return false
	}
	if principal.UserID == session.OwnerID {
		return true
	}
	return principal.HasCapability(models.CapabilitySecurityAdmin)
}
