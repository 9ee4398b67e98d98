package auth

// UserClaims is the identity attached to an authenticated request
type UserClaims interface {
	UserID() string
	Roles() []string
	HasRole(role string) bool
	Source() string
}

// JWTClaims carries the subject and realm roles from a bearer token
type JWTClaims struct {
	Subject    string
	Username   string
	RoleValues []string
}

func (c *JWTClaims) UserID() string  { return c.Subject }
func (c *JWTClaims) Roles() []string { return c.RoleValues }
func (c *JWTClaims) Source() string  { return "JWT" }

func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.RoleValues {
		if r == role {
			return true
		}
	}
	return false
}
