// Package local implements the identity provider contract against a local
// sqlite users table. It mirrors the hosted provider's behavior so the app
// and its tests run without network access.
package local
