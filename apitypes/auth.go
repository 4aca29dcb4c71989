package apitypes

type AuthLoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthCurrentUserDTO struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type AuthLoginResponseDTO struct {
	User                   AuthCurrentUserDTO `json:"user"`
	IsAwaitingMFA          bool               `json:"is_awaiting_mfa"`
	RequiresPasswordChange bool               `json:"requires_password_change"`
	RequiresMFAEnrollment  bool               `json:"requires_mfa_enrollment"`
}

// AuthWhoamiResponseDTO is returned by both the refresh and whoami endpoints
// and carries the same shape as a login response.
type AuthWhoamiResponseDTO struct {
	User                   AuthCurrentUserDTO `json:"user"`
	IsAwaitingMFA          bool               `json:"is_awaiting_mfa"`
	RequiresPasswordChange bool               `json:"requires_password_change"`
	RequiresMFAEnrollment  bool               `json:"requires_mfa_enrollment"`
}

type AuthChangePasswordRequestDTO struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type AuthMFAStartEnrollmentResponseDTO struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

type AuthMFACodeRequestDTO struct {
	Code string `json:"code"`
}
