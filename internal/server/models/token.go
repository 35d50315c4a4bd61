package models

// UserSummary is the user echo embedded in a TokenResponse.
type UserSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	TenantSlug string `json:"tenant_slug"`
	TenantName string `json:"tenant_name"`
}

// TokenResponse is returned from login and refresh. ExpiresIn is the access
// token lifetime in seconds. Never persisted; built fresh per issuance.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserSummary `json:"user"`
}
