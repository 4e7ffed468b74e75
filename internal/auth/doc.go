// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package auth provides authentication primitives for EmberMUD.
//
// # Domain Types
//
// User accounts should be created through NewUser, which validates the
// username and password hash. Direct struct initialization bypasses
// validation and may create invalid state. Repository implementations
// receive pre-validated types from the constructor.
//
// # Service
//
// Service coordinates the account operations the connection lifecycle
// needs: Authenticate for login, Register for signup, and
// ChangePassword for in-game password changes. It is created with
// NewService or, when dependency validation is wanted, NewServiceWithLogger.
package auth
