package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSemantics(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.FindByID(ctx, "U1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.Create(ctx, "U1", "a@x.com", "pw123456", "A")
	require.NoError(t, err)

	_, err = m.Create(ctx, "U2", "a@x.com", "pw123456", "B")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = m.Create(ctx, "U3", "c@x.com", "short", "C")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = m.Update(ctx, "missing", "m@x.com", "pw123456", "M")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.Update(ctx, "U1", "a2@x.com", "pw123456", "A2")
	require.NoError(t, err)

	require.NoError(t, m.SetClaims(ctx, "U1", map[string]interface{}{"role": "teacher", "schoolId": "S1"}))
	rec, err := m.FindByID(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "a2@x.com", rec.Email)
	require.Equal(t, "teacher", rec.Claims["role"])

	// claims are replaced wholesale, not merged
	require.NoError(t, m.SetClaims(ctx, "U1", map[string]interface{}{"role": "librarian"}))
	rec, err = m.FindByID(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"role": "librarian"}, rec.Claims)

	require.Equal(t, 1, m.Len())
}
