// Package auth holds the staff session.
//
// A session is an opaque bearer token plus the staff identity it belongs
// to. The token is persisted under the "adminToken" key so a restart does
// not log staff out; whether it is still valid is only known by asking the
// server (GET /auth/me), which Open does on startup.
//
// The session is the api client's credential source. When the server
// answers 401 the client calls Invalidate, which forgets the token both in
// memory and on disk and notifies subscribers so views can fall back to
// the login screen.
package auth
