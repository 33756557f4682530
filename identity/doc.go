// Package identity parses a bearer token carried on a pipectx.Context
// property and seeds the well-known UserId/TenantId/CorrelationId
// properties from its claims. It is the one slice of the teacher's auth
// package retained in this module: full authentication/authorization is
// out of scope (see SPEC_FULL.md), but a pipeline still needs a way to
// turn a token already attached to the context into identity properties
// downstream stages and behaviors can read.
package identity
