package types

// Credentials holds the username and password pair exchanged for a bearer
// token. The pair is immutable for the lifetime of a client instance.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the payload returned by a successful credential exchange
// against the Portainer authentication endpoint.
type TokenResponse struct {
	// JWT is the opaque bearer token presented on subsequent requests.
	JWT string `json:"jwt"`
}
