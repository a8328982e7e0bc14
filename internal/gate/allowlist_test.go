package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUID(t *testing.T) {
	tests := []struct {
		name string
		uid  []byte
		want string
	}{
		{"reference card", []byte{0x04, 0x4a, 0xf5, 0x6a, 0x2c, 0x59, 0x80}, "4 4a f5 6a 2c 59 80"},
		{"no padding", []byte{0x00, 0x01, 0x0f}, "0 1 f"},
		{"lowercase", []byte{0xff, 0xab}, "ff ab"},
		{"single byte", []byte{0x9f}, "9f"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUID(tt.uid))
		})
	}
}

func TestMatchFirstEntryWins(t *testing.T) {
	l := NewAllowList(
		AuthorizedUser{Name: "A", UID: "aa bb"},
		AuthorizedUser{Name: "B", UID: "aa bb"},
	)

	u, ok := l.Match("aa bb")
	require.True(t, ok)
	assert.Equal(t, "A", u.Name)
}

func TestMatchIsCaseSensitive(t *testing.T) {
	l := NewAllowList(AuthorizedUser{Name: "Upper", UID: "e3 9F 1c 2b"})

	_, ok := l.Match("e3 9f 1c 2b")
	assert.False(t, ok, "lowercase scan must not match uppercase entry")

	u, ok := l.Match("e3 9F 1c 2b")
	require.True(t, ok)
	assert.Equal(t, "Upper", u.Name)
}

func TestMatchNoMatch(t *testing.T) {
	l := NewAllowList(DefaultUsers...)

	u, ok := l.Match("ff ff ff")
	assert.False(t, ok)
	assert.Empty(t, u.Name)
}

func TestMatchRequiresWholeString(t *testing.T) {
	l := NewAllowList(AuthorizedUser{Name: "A", UID: "4 4a f5"})

	for _, uid := range []string{"4 4a", "4 4a f5 ", " 4 4a f5", "4 4a f5 6a", "04 4a f5"} {
		_, ok := l.Match(uid)
		assert.False(t, ok, "uid %q", uid)
	}
}

func TestDefaultUsersReferenceCard(t *testing.T) {
	l := NewAllowList(DefaultUsers...)
	uid := FormatUID([]byte{0x04, 0x4a, 0xf5, 0x6a, 0x2c, 0x59, 0x80})

	u, ok := l.Match(uid)
	require.True(t, ok)
	assert.Equal(t, "Abdalla Nassar", u.Name)
}

func TestAllowListIsImmutable(t *testing.T) {
	src := []AuthorizedUser{{Name: "A", UID: "1"}}
	l := NewAllowList(src...)

	src[0].Name = "changed"
	users := l.Users()
	users[0].UID = "2"

	u, ok := l.Match("1")
	require.True(t, ok)
	assert.Equal(t, "A", u.Name)
	assert.Equal(t, 1, l.Len())
}

func TestValidate(t *testing.T) {
	l := NewAllowList(
		AuthorizedUser{Name: "A", UID: "aa bb"},
		AuthorizedUser{Name: "B", UID: "aa bb"},
		AuthorizedUser{Name: "C", UID: "e3 9F"},
		AuthorizedUser{Name: "D", UID: "04 1c"},
		AuthorizedUser{Name: "E", UID: "zz"},
		AuthorizedUser{Name: "F", UID: "1  2"},
	)

	warnings := l.Validate()
	require.Len(t, warnings, 5)
	assert.Contains(t, warnings[0], `shadowed by "A"`)
	assert.Contains(t, warnings[1], "uppercase")
	assert.Contains(t, warnings[2], "zero-padded")
	assert.Contains(t, warnings[3], "not a hex byte")
	assert.Contains(t, warnings[4], "empty")
}

func TestValidateDefaultUsers(t *testing.T) {
	warnings := NewAllowList(DefaultUsers...).Validate()

	// Only the uppercase "9F" entry is flagged.
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Youssef Hany")
}
