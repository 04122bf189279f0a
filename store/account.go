package store

import "time"

// Role is a capability tag on an account. An account may hold several roles
// at once (e.g. a staff advisor who is also a sub warden), so roles are
// carried as a set of tags, never as a hierarchy.
type Role string

// Known role tags.
const (
	RoleStudent      Role = "student"
	RoleStaffAdvisor Role = "staff-advisor"
	RoleHOD          Role = "hod"
	RoleSubWarden    Role = "sub-warden"
	RoleWarden       Role = "warden"
	RolePrincipal    Role = "principal"
)

// Account is an identity record. The Address field is the external address
// (organisation mail id) used as a secondary lookup key; ID is the internal,
// opaque primary key. The two key spaces meet in MessageStore.ListMessagesFor.
type Account struct {
	ID      string
	Name    string
	Address string
	// CredentialHash is the bcrypt hash of the account secret.
	// The plaintext secret is never stored.
	CredentialHash []byte
	Roles          []Role

	// Descriptive organisational attributes, used only as form-fill data.
	Department string
	Section    string
	Hosteller  bool
	HostelName string
	RollNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the account carries the given role tag.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AccountData carries the fields for creating an account.
// The credential must already be hashed by the caller.
type AccountData struct {
	Name           string
	Address        string
	CredentialHash []byte
	Roles          []Role
	Department     string
	Section        string
	Hosteller      bool
	HostelName     string
	RollNumber     string
}

// AccountUpdate carries a partial profile update. Nil pointer fields are left
// untouched; a nil Roles slice leaves the role set unchanged.
type AccountUpdate struct {
	Name       *string
	Department *string
	Section    *string
	Hosteller  *bool
	HostelName *string
	RollNumber *string
	Roles      []Role
}
