package enums

// UserRole is carried in access tokens minted by the identity service.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
	UserRoleDelivery UserRole = "delivery"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleCustomer, UserRoleAdmin, UserRoleDelivery:
		return true
	default:
		return false
	}
}
