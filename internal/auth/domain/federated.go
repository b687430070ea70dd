package domain

// FederatedProfile is the normalized result of an OAuth authorization-code
// exchange with an external provider. Email may be empty for providers that
// hide it from the profile payload (GitHub); the identity linker then falls
// back to the provider's email-listing API using AccessToken.
type FederatedProfile struct {
	Provider    Provider
	ProviderID  string
	Email       string
	Name        string
	AccessToken string
}

// TOTPEnrollment is returned by second-factor setup. URI is an otpauth://
// provisioning URI for an external QR renderer; Secret allows manual entry.
type TOTPEnrollment struct {
	Secret  string
	URI     string
	Issuer  string
	Account string
}
