package model

import "time"

// Status is the moderation state of a resource.  Rejection deletes the row,
// so there is no Rejected value.
type Status string

const (
    StatusPending  Status = "Pending"
    StatusApproved Status = "Approved"
)

// Resource is a row of the `resources` table.  UploaderName is only filled
// by queries that join users.
type Resource struct {
    ID            uint64    `json:"id"`
    Title         string    `json:"title"`
    FilePath      string    `json:"file_path"`
    FileType      string    `json:"file_type"`
    Semester      int       `json:"semester"`
    SubjectCode   string    `json:"subject_code"`
    Unit          int       `json:"unit"`
    ProfessorName *string   `json:"professor_name"`
    UploadedBy    uint64    `json:"uploaded_by"`
    UploaderName  string    `json:"uploader_name,omitempty"`
    Status        Status    `json:"status"`
    UploadDate    time.Time `json:"upload_date"`
}

// ResourceFilter narrows the public listing.  Zero values are ignored.
type ResourceFilter struct {
    Semester    int
    SubjectCode string
    Professor   string // substring match
}

// UploaderCount is one row of the approved-uploads leaderboard.
type UploaderCount struct {
    UploaderID uint64
    Count      int
}

// DayCount is the number of uploads on one calendar day (UTC).
type DayCount struct {
    Day   time.Time
    Count int
}
