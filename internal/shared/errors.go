package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing provider token")

	// Sync lifecycle errors
	ErrSyncInProgress = fmt.Errorf("a sync is already in progress")
	ErrJobNotFound    = fmt.Errorf("sync job not found")
	ErrUnknownEntity  = fmt.Errorf("unknown entity")
	ErrNoEntities     = fmt.Errorf("at least one entity must be selected")

	// Provider errors
	ErrProviderRequest     = fmt.Errorf("provider request failed")
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrTimeout             = fmt.Errorf("operation timed out")
	ErrServerUnreachable   = fmt.Errorf("dashboard server unreachable")

	// Group and selection errors
	ErrGroupNotFound  = fmt.Errorf("group not found")
	ErrDuplicateGroup = fmt.Errorf("a group with that name already exists")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
