// Package roles defines the role tags a user can hold. Roles are an
// unordered set; membership is what matters.
package roles

const (
	Admin                  = "admin"
	Standard               = "standard"
	ServiceAccount         = "service_account"
	MFAExempt              = "mfa_exempt"
	MFAEnrolled            = "mfa_enrolled"
	RequiresPasswordChange = "requires_password_change"
)

// Assignable lists the roles an administrator may hand out directly.
// MFAEnrolled is earned through enrollment, never assigned.
var Assignable = []string{Standard, Admin, ServiceAccount, MFAExempt, RequiresPasswordChange}

func AreAssignable(candidates []string) bool {
	for _, role := range candidates {
		if !Contains(Assignable, role) {
			return false
		}
	}
	return true
}

func Contains(set []string, role string) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}

// Remove returns the set without the given role, preserving order.
func Remove(set []string, role string) []string {
	out := make([]string, 0, len(set))
	for _, r := range set {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}
