package seed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validUser() User {
	return User{
		ID:          "U1",
		Email:       "a@x.com",
		Password:    "pw123456",
		DisplayName: "A",
		Role:        RoleTeacher,
		SchoolID:    "S1",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validUser().Validate())

	t.Run("missing schoolId for tenant role", func(t *testing.T) {
		u := validUser()
		u.SchoolID = ""
		err := u.Validate()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "U1", verr.ID)
	})

	t.Run("system-admin without schoolId is allowed", func(t *testing.T) {
		u := validUser()
		u.Role = RoleSystemAdmin
		u.SchoolID = ""
		require.NoError(t, u.Validate())
	})

	t.Run("unknown role", func(t *testing.T) {
		u := validUser()
		u.Role = "janitor"
		require.Error(t, u.Validate())
	})

	t.Run("short password", func(t *testing.T) {
		u := validUser()
		u.Password = "short"
		require.Error(t, u.Validate())
	})

	t.Run("bad email", func(t *testing.T) {
		u := validUser()
		u.Email = "not-an-email"
		require.Error(t, u.Validate())
	})
}

func TestClaimsAndProfileFields(t *testing.T) {
	u := validUser()
	require.Equal(t, map[string]interface{}{"role": "teacher", "schoolId": "S1"}, u.Claims())
	require.Equal(t, map[string]interface{}{
		"email":       "a@x.com",
		"displayName": "A",
		"role":        "teacher",
		"schoolId":    "S1",
	}, u.ProfileFields())

	u.Role = RoleSystemAdmin
	u.SchoolID = ""
	require.Nil(t, u.Claims()["schoolId"])
	require.Nil(t, u.ProfileFields()["schoolId"])
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	t.Run("valid payload", func(t *testing.T) {
		p := write("ok.json", `{
			"users": [{"id":"U1","email":"a@x.com","password":"pw123456","displayName":"A","role":"teacher","schoolId":"S1"}],
			"dataset": {"schools": [{"id":"S1","fields":{"name":"Test School"}}]}
		}`)
		data, err := NewFileSource(p).Load()
		require.NoError(t, err)
		require.Len(t, data.Users, 1)
		require.Equal(t, 1, data.Dataset.Len())
	})

	t.Run("unparseable file", func(t *testing.T) {
		p := write("bad.json", `{not json`)
		_, err := NewFileSource(p).Load()
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("missing required field", func(t *testing.T) {
		p := write("missing.json", `{"users": [{"id":"U1","email":"a@x.com","displayName":"A","role":"teacher"}]}`)
		_, err := NewFileSource(p).Load()
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		require.Contains(t, err.Error(), "password")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(dir, "nope.json")).Load()
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		require.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestBootstrap(t *testing.T) {
	data, err := NewStaticSource(Bootstrap()).Load()
	require.NoError(t, err)
	require.NotEmpty(t, data.Users)
	for _, u := range data.Users {
		require.NoError(t, u.Validate(), "bootstrap user %s must be valid", u.ID)
	}
}
