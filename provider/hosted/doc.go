// Package hosted implements the identity provider contract against the
// hosted identity service's REST API.
package hosted
