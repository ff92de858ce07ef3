package models

// Token pair issued by backend on login or refresh
// RefreshToken is empty when backend works with access tokens only
type TokenPair struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
