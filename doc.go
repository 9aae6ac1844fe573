// Package sessiontoken implements a bearer-credential lifecycle engine:
// minting, validation and rotation of signed access/refresh token pairs,
// backed by server-side session state in an external key-value store.
//
// Features:
//   - HMAC-SHA256 signed access and refresh tokens with independent keys
//   - Store-backed sessions with a fixed TTL, rotated on every refresh
//   - Atomic rotation: concurrent refreshes of one session serialize through
//     the store, so at most one new session is ever minted per rotation
//   - Dormant-account reactivation via short-lived one-time codes delivered
//     through a pluggable messaging collaborator
//   - Pluggable session/challenge stores: Redis, GORM (Postgres) and in-memory
package sessiontoken
