//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore UserStore. It supports
// multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - User: user records, keyed by the generated user id
//   - UserEmail: one entity per email, keyed by the email, pointing at the
//     owning user. Create writes both in one transaction, which is what
//     keeps emails unique.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	userStore := gae.NewUserStore(client, "")  // default namespace
package gae
