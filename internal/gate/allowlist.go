package gate

import (
	"fmt"
	"strconv"
	"strings"
)

// AuthorizedUser is one allow-list entry.
type AuthorizedUser struct {
	Name string
	UID  string // space-separated hex bytes, as rendered by FormatUID
}

// AllowList is an ordered, immutable table of authorized users.
type AllowList struct {
	users []AuthorizedUser
}

// NewAllowList copies users into a new AllowList. Order is preserved and
// determines which entry wins when two share a UID.
func NewAllowList(users ...AuthorizedUser) *AllowList {
	cp := make([]AuthorizedUser, len(users))
	copy(cp, users)
	return &AllowList{users: cp}
}

// Match returns the first user whose UID equals uid exactly (case-sensitive).
func (l *AllowList) Match(uid string) (AuthorizedUser, bool) {
	for _, u := range l.users {
		if u.UID == uid {
			return u, true
		}
	}
	return AuthorizedUser{}, false
}

// Users returns a copy of the table in order.
func (l *AllowList) Users() []AuthorizedUser {
	cp := make([]AuthorizedUser, len(l.users))
	copy(cp, l.users)
	return cp
}

// Len returns the number of entries.
func (l *AllowList) Len() int {
	return len(l.users)
}

// Validate reports entries that can never match a scanned card or that are
// shadowed by an earlier entry. It does not change matching behavior.
func (l *AllowList) Validate() []string {
	var warnings []string
	seen := make(map[string]string, len(l.users))

	for _, u := range l.users {
		if first, ok := seen[u.UID]; ok {
			warnings = append(warnings, fmt.Sprintf("uid %q of %q is shadowed by %q", u.UID, u.Name, first))
		} else {
			seen[u.UID] = u.Name
		}

		for _, tok := range strings.Split(u.UID, " ") {
			if problem := tokenProblem(tok); problem != "" {
				warnings = append(warnings, fmt.Sprintf("uid %q of %q: token %q %s", u.UID, u.Name, tok, problem))
			}
		}
	}
	return warnings
}

func tokenProblem(tok string) string {
	if tok == "" {
		return "is empty (double or trailing space)"
	}
	v, err := strconv.ParseUint(tok, 16, 8)
	if err != nil {
		return "is not a hex byte"
	}
	if tok != strconv.FormatUint(v, 16) {
		if strings.ToLower(tok) != tok {
			return "has uppercase hex and will never match a scanned card"
		}
		return "is zero-padded and will never match a scanned card"
	}
	return ""
}

// FormatUID renders card bytes as lowercase hex tokens without zero padding,
// joined by single spaces: {0x04, 0x4a} -> "4 4a".
func FormatUID(uid []byte) string {
	parts := make([]string, len(uid))
	for i, b := range uid {
		parts[i] = strconv.FormatUint(uint64(b), 16)
	}
	return strings.Join(parts, " ")
}
