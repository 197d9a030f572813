package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer token
// on API requests.
const AuthorizationHeaderName = "Authorization"
