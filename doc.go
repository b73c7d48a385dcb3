// Package ninjaauth is the credential and session authority for the ninja
// web application.
//
// It authenticates users by password or by a federated identity provider,
// establishes and tears down sessions, and runs an out-of-band password
// recovery protocol built on signed, time-limited tokens.
//
// # Architecture
//
// Hasher: one-way Argon2id hashing of passwords. Legacy bcrypt digests are
// still accepted by Verify.
//
// TokenService: signs and verifies stateless recovery tokens (HS256 JWTs
// carrying the user id and issuance time).
//
// UserStore: typed CRUD over the User record. Implementations live in the
// stores package (file system, GORM, Postgres, Cloud Datastore).
//
// Strategies: LocalStrategy (email + password) and FederatedStrategy
// (provider profile). Both implement Strategy and are handed to
// SessionManager.Login explicitly; nothing is registered globally.
//
// SessionManager: wraps an scs session manager. Only the user id is written
// into the session; every request rehydrates the full User from the store.
//
// RecoveryFlow: forgot-password (Initiate) and reset-password (Complete).
//
// # Basic Usage
//
//	store := stores.NewFSUserStore("/var/lib/ninja")
//	hasher, _ := ninjaauth.NewArgon2Hasher(ninjaauth.DefaultArgon2Params())
//	tokens := ninjaauth.NewTokenService([]byte(secret), time.Hour)
//	mailer := ninjaauth.NewMailer(&ninjaauth.ConsoleTransport{})
//
//	auth := ninjaauth.NewAuth(store, hasher, tokens, scs.New(), mailer, "https://ninja.example.com")
//	auth.AddProvider("google", oauth2.NewGoogleOAuth2(clientID, clientSecret, callbackURL, auth.CompleteFederatedLogin))
//	http.ListenAndServe(":8080", auth.Handler())
//
// # Security
//
// Login never reveals whether an email is registered, and neither does
// Initiate. Recovery tokens are not stored server side; changing the JWT
// secret invalidates every outstanding token. Complete requires the token's
// subject to be the same user as the submitted email.
package ninjaauth
