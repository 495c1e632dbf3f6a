package roles

// Role is a node in the role forest. A nil ParentID marks a root role;
// permission inheritance flows from a role up through its ancestors.
type Role struct {
	ID       int64
	ParentID *int64
}
