// Package authflow drives the interactive remote-account handshake:
// credential submission, an optional login-code challenge, an optional
// second-factor password, and bounded retry when the account service reports
// the transient resource-locked condition.
package authflow
