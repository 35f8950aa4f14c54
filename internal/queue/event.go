// Package queue defines message payloads exchanged over the message broker.
package queue

// ModerationQueue is the durable queue moderation events go to.
const ModerationQueue = "resource.moderated"

// Moderation actions carried in ResourceModeratedEvent.Action.
const (
    ActionApproved = "approved"
    ActionRejected = "rejected"
)

// ResourceModeratedEvent is published after a moderator approves or rejects
// a submission.  It carries enough for the log consumer without a DB read.
type ResourceModeratedEvent struct {
    ResourceID  uint64 `json:"resource_id"`
    Title       string `json:"title"`
    UploaderID  uint64 `json:"uploader_id"`
    Action      string `json:"action"`
    ModeratorID uint64 `json:"moderator_id"`
    At          string `json:"at"` // RFC 3339, UTC
}
