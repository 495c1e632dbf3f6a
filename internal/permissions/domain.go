package permissions

// Permission grants a role access to one protected object.
type Permission struct {
	ID       int64
	RoleID   int64
	ObjectID string
}
