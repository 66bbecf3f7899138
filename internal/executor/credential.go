package executor

import (
	"errors"
	"strings"
)

// ErrMissingCredential is the configuration fault raised before any network
// call when the static credential is absent or still the placeholder.
var ErrMissingCredential = errors.New("auth credential is missing or a placeholder")

// PlaceholderToken is what deployments ship when the credential was never filled in.
const PlaceholderToken = "Token Not Found!"

// Credential is the process-wide static credential sent as
// "Authorization: <Scheme> <Token>".
type Credential struct {
	Scheme string
	Token  string
}

func (c Credential) Validate() error {
	tok := strings.TrimSpace(c.Token)
	if tok == "" || tok == PlaceholderToken {
		return ErrMissingCredential
	}
	return nil
}

func (c Credential) header() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "Token"
	}
	return scheme + " " + strings.TrimSpace(c.Token)
}
