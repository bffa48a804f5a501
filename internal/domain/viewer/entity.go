package viewer

// Role enum
type Role string

const (
	RoleStudent      Role = "student"
	RolePeer         Role = "peer"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// Context is the resolved viewer for one request. Resolved once by the auth
// middleware; the engine only consults it to gate triage reads.
type Context struct {
	Role      Role
	SubjectID string
	TenantID  string
}

// CanViewTriage: only professional/admin roles may read triage entries.
func (c Context) CanViewTriage() bool {
	return c.Role == RoleProfessional || c.Role == RoleAdmin
}

// CanUpdateTriage mirrors the read gate; acknowledging/resolving is a
// deliberate staff action.
func (c Context) CanUpdateTriage() bool {
	return c.CanViewTriage()
}

// CanSubmitCheckin: every known role may run an analysis for itself.
func (c Context) CanSubmitCheckin() bool {
	return c.Role == RoleStudent || c.Role == RolePeer || c.CanViewTriage()
}
