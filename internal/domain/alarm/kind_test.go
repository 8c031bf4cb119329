package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestKindValid verifies that only Normal and Alarm are accepted.
func TestKindValid(t *testing.T) {
	t.Parallel()

	require.True(t, Normal.Valid())
	require.True(t, Alarm.Valid())
	require.False(t, Kind(0).Valid())
	require.False(t, Kind(3).Valid())
	require.False(t, Kind(-1).Valid())
}

// TestParseKind verifies name parsing and rejection of unknown names.
func TestParseKind(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{
		"normal":  Normal,
		"ALARM":   Alarm,
		" alarm ": Alarm,
	}
	for s, want := range cases {
		got, err := ParseKind(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, got, mustParse(t, got.String()))
	}

	_, err := ParseKind("urgent")
	require.ErrorIs(t, err, errUnknownKind)
	require.Equal(t, "kind(7)", Kind(7).String())
}

// TestMessageClone verifies that Clone copies the envelope and handles nil safely.
func TestMessageClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Message)(nil).Clone())
	require.False(t, (*Message)(nil).IsAlarm())

	payload := &struct{ N int }{N: 3}
	m := &Message{Payload: payload, Kind: Alarm}

	c := m.Clone()
	require.Equal(t, m, c)
	require.NotSame(t, m, c)
	require.Same(t, payload, c.Payload)
	require.True(t, c.IsAlarm())
}

func mustParse(t *testing.T, s string) Kind {
	t.Helper()

	k, err := ParseKind(s)
	require.NoError(t, err)

	return k
}
