package model

import (
    "strings"
    "time"
)

// Role is the account type stored in users.role.  The values are the exact
// strings persisted and placed into the JWT "role" claim.
type Role string

const (
    RoleStudent Role = "Student"
    RoleFaculty Role = "Faculty"
    RoleAdmin   Role = "Admin"
)

// ParseRole matches a role name case-insensitively.  ok is false for
// anything that is not one of the three known roles.
func ParseRole(s string) (Role, bool) {
    switch {
    case strings.EqualFold(s, string(RoleStudent)):
        return RoleStudent, true
    case strings.EqualFold(s, string(RoleFaculty)):
        return RoleFaculty, true
    case strings.EqualFold(s, string(RoleAdmin)):
        return RoleAdmin, true
    }
    return "", false
}

// CanModerate reports whether the role may approve or reject submissions.
func (r Role) CanModerate() bool { return r == RoleAdmin || r == RoleFaculty }

// User represents an application user record as stored in the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  USN          – university seat number, the unique login handle.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password; never serialized.
//  Role         – Student, Faculty or Admin.
//  Semester     – academic term, nil for staff accounts.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `json:"id"`
    USN          string    `json:"usn"`
    Name         string    `json:"name"`
    PasswordHash string    `json:"-"`
    Role         Role      `json:"role"`
    Semester     *int      `json:"semester"`
    CreatedAt    time.Time `json:"created_at"`
}
