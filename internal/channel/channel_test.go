package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "42", Normalize("channel_42"))
	require.Equal(t, "42", Normalize("42"))
	require.Equal(t, "42", Normalize("  channel_42  "))
	require.Equal(t, "", Normalize(""))
	require.Equal(t, "", Normalize("channel_"))
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, id := range []string{"channel_42", "42", "channel_abc", "abc"} {
		once := Normalize(id)
		require.Equal(t, once, Normalize(once))
	}
}

func TestNormalizeAll(t *testing.T) {
	out := NormalizeAll([]string{"channel_1", "2", "", "channel_"})
	require.Equal(t, []string{"1", "2"}, out)
}

func TestEqual(t *testing.T) {
	require.True(t, Equal("channel_7", "7"))
	require.True(t, Equal("7", "7"))
	require.False(t, Equal("7", "8"))
	require.False(t, Equal("", ""))
	require.False(t, Equal("channel_", ""))
}

func TestFromText(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"New message in channel 42", "42"},
		{"New message in channel_42", "42"},
		{"Nouveau message dans le canal 42.", "42"},
		{"channel: 42 has activity", "42"},
		{"Channel #42 updated", "42"},
		{"no identifier here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FromText(tc.body), "body: %q", tc.body)
	}
}

func TestToInt(t *testing.T) {
	require.Equal(t, 42, ToInt("channel_42"))
	require.Equal(t, 42, ToInt("42"))
	require.Equal(t, 0, ToInt("abc"))
	require.Equal(t, 0, ToInt(""))
}
