package seed

import (
	"fmt"
)

// Role is the authorization role assigned to a seeded account.
type Role string

const (
	RoleTeacher              Role = "teacher"
	RoleHeadTeacher          Role = "head-teacher"
	RoleAssistantHeadTeacher Role = "assistant-head-teacher"
	RolePrimaryAdmin         Role = "primary-admin"
	RoleSystemAdmin          Role = "system-admin"
	RoleLibrarian            Role = "librarian"
	RoleKindergarten         Role = "kindergarten"
)

var AllRoles = []Role{
	RoleTeacher,
	RoleHeadTeacher,
	RoleAssistantHeadTeacher,
	RolePrimaryAdmin,
	RoleSystemAdmin,
	RoleLibrarian,
	RoleKindergarten,
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User is one immutable seed entry. ID doubles as the identity-store key and
// the profile-document key. SchoolID is the tenant partition; it may only be
// empty for system administrators.
type User struct {
	ID          string `json:"id" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required"`
	Role        Role   `json:"role" validate:"required,seedrole"`
	SchoolID    string `json:"schoolId" validate:"required_unless=Role system-admin"`
}

// Claims returns the authorization claims written to the identity store for
// this entry. schoolId is null for tenant-less system administrators.
func (u User) Claims() map[string]interface{} {
	return map[string]interface{}{
		"role":     string(u.Role),
		"schoolId": u.schoolIDOrNil(),
	}
}

// ProfileFields returns the full profile document body staged for this entry.
func (u User) ProfileFields() map[string]interface{} {
	return map[string]interface{}{
		"email":       u.Email,
		"displayName": u.DisplayName,
		"role":        string(u.Role),
		"schoolId":    u.schoolIDOrNil(),
	}
}

func (u User) schoolIDOrNil() interface{} {
	if u.SchoolID == "" {
		return nil
	}
	return u.SchoolID
}

// Record is a pre-shaped document for one of the dataset collections.
type Record struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Dataset carries the fuller seeding variant: application documents staged
// alongside user profiles in the same batched commit.
type Dataset struct {
	Schools      []Record `json:"schools,omitempty"`
	Staff        []Record `json:"staff,omitempty"`
	Books        []Record `json:"books,omitempty"`
	ExamResults  []Record `json:"examResults,omitempty"`
	Disciplinary []Record `json:"disciplinary,omitempty"`
	Counselling  []Record `json:"counselling,omitempty"`
	OHS          []Record `json:"ohs,omitempty"`
}

// CollectionRecords groups dataset records with their target collection.
type CollectionRecords struct {
	Collection string
	Records    []Record
}

// Collections returns dataset records in a stable staging order.
func (d Dataset) Collections() []CollectionRecords {
	return []CollectionRecords{
		{Collection: "schools", Records: d.Schools},
		{Collection: "staff", Records: d.Staff},
		{Collection: "books", Records: d.Books},
		{Collection: "examResults", Records: d.ExamResults},
		{Collection: "disciplinary", Records: d.Disciplinary},
		{Collection: "counselling", Records: d.Counselling},
		{Collection: "ohs", Records: d.OHS},
	}
}

// Len returns the total number of dataset records.
func (d Dataset) Len() int {
	n := 0
	for _, c := range d.Collections() {
		n += len(c.Records)
	}
	return n
}

// Data is the full payload supplied to a synchronization run.
type Data struct {
	Users   []User  `json:"users"`
	Dataset Dataset `json:"dataset"`
}

// ConfigError reports malformed seed input (unparseable file, entry missing a
// required field). It aborts the run before any store call.
type ConfigError struct {
	msg string
	err error
}

func (e *ConfigError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("seed config: %s: %v", e.msg, e.err)
	}
	return "seed config: " + e.msg
}

func (e *ConfigError) Unwrap() error { return e.err }

// ValidationError reports a single seed entry failing invariants. The entry is
// skipped; the run continues.
type ValidationError struct {
	ID  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("seed user %s: %v", e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
