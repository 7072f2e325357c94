package seed

import (
	"encoding/json"
	"fmt"
	"os"
)

// Source supplies the ordered seed payload for a synchronization run.
type Source interface {
	Load() (*Data, error)
}

// FileSource reads the seed payload from a JSON file:
//
//	{"users": [...], "dataset": {"schools": [...], ...}}
type FileSource struct {
	Path string
}

func NewFileSource(path string) FileSource { return FileSource{Path: path} }

func (s FileSource) Load() (*Data, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigError{msg: "read " + s.Path, err: err}
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &ConfigError{msg: "parse " + s.Path, err: err}
	}
	if err := checkShape(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// StaticSource serves a fixed in-memory payload; used for the built-in
// bootstrap list and in tests.
type StaticSource struct {
	Data Data
}

func NewStaticSource(data Data) StaticSource { return StaticSource{Data: data} }

func (s StaticSource) Load() (*Data, error) {
	data := s.Data
	if err := checkShape(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// checkShape rejects structurally malformed payloads (entries missing required
// fields). Business invariants such as the schoolId rule are checked per entry
// during the run instead, so one bad record does not abort the whole list.
func checkShape(data *Data) error {
	for i, u := range data.Users {
		switch {
		case u.ID == "":
			return &ConfigError{msg: fmt.Sprintf("users[%d]: missing id", i)}
		case u.Email == "":
			return &ConfigError{msg: fmt.Sprintf("users[%d] (%s): missing email", i, u.ID)}
		case u.Password == "":
			return &ConfigError{msg: fmt.Sprintf("users[%d] (%s): missing password", i, u.ID)}
		case u.DisplayName == "":
			return &ConfigError{msg: fmt.Sprintf("users[%d] (%s): missing displayName", i, u.ID)}
		case u.Role == "":
			return &ConfigError{msg: fmt.Sprintf("users[%d] (%s): missing role", i, u.ID)}
		}
	}
	for _, c := range data.Dataset.Collections() {
		for i, r := range c.Records {
			if r.ID == "" {
				return &ConfigError{msg: fmt.Sprintf("dataset.%s[%d]: missing id", c.Collection, i)}
			}
			if len(r.Fields) == 0 {
				return &ConfigError{msg: fmt.Sprintf("dataset.%s[%d] (%s): missing fields", c.Collection, i, r.ID)}
			}
		}
	}
	return nil
}

// Bootstrap is the built-in seed list used when no seed file is configured.
// Passwords here are bootstrap credentials for fresh dev environments only.
func Bootstrap() Data {
	return Data{
		Users: []User{
			{ID: "sys-admin-1", Email: "sysadmin@shulebook.io", Password: "ch4ng3-me-now", DisplayName: "System Administrator", Role: RoleSystemAdmin},
			{ID: "pri-admin-1", Email: "admin@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "Green Hill Admin", Role: RolePrimaryAdmin, SchoolID: "greenhill"},
			{ID: "head-1", Email: "head@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "Head Teacher", Role: RoleHeadTeacher, SchoolID: "greenhill"},
			{ID: "asst-head-1", Email: "deputy@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "Deputy Head Teacher", Role: RoleAssistantHeadTeacher, SchoolID: "greenhill"},
			{ID: "teacher-1", Email: "teacher1@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "Form One Teacher", Role: RoleTeacher, SchoolID: "greenhill"},
			{ID: "librarian-1", Email: "library@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "School Librarian", Role: RoleLibrarian, SchoolID: "greenhill"},
			{ID: "kg-1", Email: "kindergarten@greenhill.sc.ke", Password: "ch4ng3-me-now", DisplayName: "Kindergarten Lead", Role: RoleKindergarten, SchoolID: "greenhill"},
		},
		Dataset: Dataset{
			Schools: []Record{
				{ID: "greenhill", Fields: map[string]interface{}{"name": "Green Hill Academy", "county": "Nairobi", "active": true}},
			},
		},
	}
}
