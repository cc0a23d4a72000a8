package participant

// rolePermissions is the single source of truth for default privileges.
// Providers run the encounter outright. Specialists get every clinical
// privilege except ending the session. Patients, interpreters, and caregivers
// hold no privileged actions unless a provider grants them explicitly through
// a permissions update.
var rolePermissions = map[Role]PermissionSet{
	RoleProvider: {
		CanEndSession:    true,
		CanMuteOthers:    true,
		CanRecordSession: true,
		CanInviteOthers:  true,
		CanScreenShare:   true,
	},
	RoleSpecialist: {
		CanEndSession:    false,
		CanMuteOthers:    true,
		CanRecordSession: true,
		CanInviteOthers:  true,
		CanScreenShare:   true,
	},
	RolePatient:     {},
	RoleInterpreter: {},
	RoleCaregiver:   {},
}

// DefaultPermissions returns the default permission set for a role, consulted
// once when the participant joins. Unknown roles get no privileges.
func DefaultPermissions(role Role) PermissionSet {
	return rolePermissions[role]
}
