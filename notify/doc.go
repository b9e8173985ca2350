// Package notify provides notification services for cycle events.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with type, task ID, message, and metadata
//   - EventType: Type of event (task started, completed, escalated, etc.)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks
//   - LogNotifier: Logs notifications (for testing/debugging)
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier (for testing)
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#dev-alerts"),
//	    notify.WithSlackUsername("skillcycle-bot"),
//	)
//	err := notifier.Notify(ctx, notify.Event{
//	    Type:    notify.EventTaskCompleted,
//	    TaskID:  "task-abc123",
//	    Message: "Cycle completed successfully",
//	})
package notify
