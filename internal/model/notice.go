package model

import "time"

// Notice is a department announcement.  AuthorName comes from a join on users.
type Notice struct {
    ID         uint64    `json:"id"`
    Title      string    `json:"title"`
    Content    string    `json:"content"`
    CreatedBy  uint64    `json:"created_by"`
    AuthorName string    `json:"author_name,omitempty"`
    CreatedAt  time.Time `json:"created_at"`
}
