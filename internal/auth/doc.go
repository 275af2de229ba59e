// Package auth handles JWT issuance and verification for wallboard clients.
//
// Login exchanges an agent code for an HS256 token carrying the sub, role
// and team_id claims. The same JWTVerifier validates tokens on both entry
// points: the websocket handshake (token passed as a query parameter) and
// the REST API (Authorization: Bearer header via HTTPAuthMiddleware).
//
// Verified identities travel through request contexts with WithIdentity
// and FromContext.
package auth
