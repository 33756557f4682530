package identity

import (
	"context"
	"fmt"

	"github.com/flowforge/pipeline/behavior"
	"github.com/flowforge/pipeline/perr"
	"github.com/flowforge/pipeline/pipectx"
)

// KeyBearerToken is the property a caller sets before execution to carry
// the raw (optionally "Bearer "-prefixed) token to be verified.
const KeyBearerToken = "BearerToken"

// KeyRoles is the property the behavior seeds from the token's roles
// claim, when configured.
var KeyRoles = pipectx.FeatureKey("Roles")

// TokenSelector extracts the bearer token to verify from ctx. The
// default looks it up under KeyBearerToken.
type TokenSelector func(ctx *pipectx.Context) (string, bool)

// DefaultTokenSelector reads KeyBearerToken from ctx.
func DefaultTokenSelector(ctx *pipectx.Context) (string, bool) {
	return pipectx.GetValue(ctx, KeyBearerToken, ""), ctx.HasProperty(KeyBearerToken)
}

// Behavior builds a PreProcessing behavior.Contribution that extracts a
// bearer token via selector (DefaultTokenSelector if nil), verifies it
// with extractor, and seeds CorrelationId/UserId/TenantId/Roles on ctx
// before calling next. Absence of a token is not an error: pipelines
// that don't carry identity simply pass through unseeded.
func Behavior(id string, extractor *Extractor, selector TokenSelector) behavior.Contribution {
	if selector == nil {
		selector = DefaultTokenSelector
	}

	fn := func(ctx *pipectx.Context, next behavior.Next) (any, error) {
		token, present := selector(ctx)
		if !present || token == "" {
			return next.Proceed(ctx)
		}

		claims, err := extractor.Extract(context.Background(), token)
		if err != nil {
			return nil, perr.Rejected("identity", fmt.Sprintf("bearer token rejected: %v", err))
		}

		if claims.Principal != "" {
			_ = ctx.SetProperty(pipectx.KeyUserID, claims.Principal)
		}
		if claims.TenantID != "" {
			_ = ctx.SetProperty(pipectx.KeyTenantID, claims.TenantID)
		}
		if claims.CorrelationID != "" {
			_ = ctx.SetProperty(pipectx.KeyCorrelationID, claims.CorrelationID)
		}
		if len(claims.Roles) > 0 {
			_ = ctx.SetProperty(KeyRoles, claims.Roles)
		}

		return next.Proceed(ctx)
	}

	return behavior.Contribution{
		ID:        id,
		Name:      "identity",
		Behavior:  fn,
		Phase:     behavior.PreProcessing,
		Placement: behavior.First(),
		IsEnabled: true,
	}
}
