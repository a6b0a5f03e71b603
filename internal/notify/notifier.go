// Package notify carries user notifications out of the worker process. The
// delivery channel itself (push, email, in-app) lives behind the boundary;
// this package only hands the envelope off.
package notify

import "context"

// Notifier dispatches one notification to a user.
type Notifier interface {
	Send(ctx context.Context, userID, templateID string, data map[string]any) error
}
