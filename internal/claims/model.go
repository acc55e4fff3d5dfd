package claims

import "time"

// AdminKey is the custom claim read by downstream authorization checks.
const AdminKey = "admin"

type Action string

const (
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

func actionFor(admin bool) Action {
	if admin {
		return ActionGrant
	}
	return ActionRevoke
}

// Claims is a user's custom claims map as stored by Firebase Auth.
type Claims map[string]interface{}

func (c Claims) clone() Claims {
	if c == nil {
		return nil
	}
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Change is the outcome of one SetAdmin call.
type Change struct {
	ID     string
	UID    string
	Action Action
	// Before is nil when the current claims were not read.
	Before    Claims
	After     Claims
	DryRun    bool
	ChangedAt time.Time
}

// IsAdmin checks if claims grant the admin role.
func IsAdmin(claims map[string]interface{}) bool {
	if claims == nil {
		return false
	}
	// Check admin flag
	if admin, ok := claims[AdminKey].(bool); ok && admin {
		return true
	}
	// Check role field
	if role, ok := claims["role"].(string); ok && role == "admin" {
		return true
	}
	// Check roles map
	if roles, ok := claims["roles"].(map[string]interface{}); ok {
		if b, ok := roles["admin"].(bool); ok && b {
			return true
		}
	}
	// Check roles array
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if str, ok := r.(string); ok && str == "admin" {
				return true
			}
		}
	}
	return false
}
