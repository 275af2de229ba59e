// Package identity defines who is on the other end of a connection: a
// case-normalized code, a role (agent or supervisor) and an optional team.
// Identities are immutable for the lifetime of a connection.
package identity
