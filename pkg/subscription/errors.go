package subscription

import "errors"

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrMissingTenantID   = errors.New("subscription tenant ID is required")
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrNoPlansConfigured = errors.New("at least one subscription plan is required")
	ErrInvalidPlan       = errors.New("invalid subscription plan configuration")
	ErrFailedToLoad      = errors.New("failed to load subscription plans")
)
