package common

// AuthorizationHeaderName is the HTTP header carrying the relay auth token.
const AuthorizationHeaderName = "Authorization"

// IdentityPrefix starts every generated sync id.
const IdentityPrefix = "wl-"

// DefaultPageSize is the number of records requested per pull page.
const DefaultPageSize = 100
