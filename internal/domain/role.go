package domain

// Role is assigned once per connection, on a successful create or join.
type Role int

const (
	RoleUnbound Role = iota
	RoleHost
	RoleViewer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleViewer:
		return "viewer"
	case RoleUnbound:
		return "unbound"
	}
	return "unknown"
}
