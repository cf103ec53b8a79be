package service

// Roles carried in the identity token.
const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID    string
	Role  string
	Email string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
