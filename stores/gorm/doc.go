//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based UserStore. It supports any database
// that GORM supports (PostgreSQL, MySQL, SQLite, etc.).
//
// # Database Schema
//
// AutoMigrate creates a single "users" table with a unique index on email,
// which is what makes concurrent Create calls for one email safe.
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open("ninja.db"), &gorm.Config{TranslateError: true})
//	_ = gormstore.AutoMigrate(db)
//	userStore := gormstore.NewUserStore(db)
package gorm
