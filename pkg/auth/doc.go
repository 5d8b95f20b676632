// Package auth implements stateless token authentication and role-based
// authorization for board resources.
//
// A token is a bcrypt hash computed over a digest of the username and the
// user's stored password hash. Because the token is derived entirely from
// persisted user state, verification needs no token table: the server
// recomputes the comparison on every request. Tokens implicitly expire
// when the user's password changes.
package auth
