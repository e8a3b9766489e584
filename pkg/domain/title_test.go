package domain

import (
	"strings"
	"testing"
)

func TestTitleFromDraft(t *testing.T) {
	long := strings.Repeat("abcde", 9) // 45 chars

	cases := []struct {
		name  string
		draft string
		want  string
	}{
		{"empty", "", DefaultConversationTitle},
		{"whitespace only", "   \n\t", DefaultConversationTitle},
		{"short unchanged", "Explain recursion", "Explain recursion"},
		{"exactly thirty", strings.Repeat("x", 30), strings.Repeat("x", 30)},
		{"thirty one truncated", strings.Repeat("x", 31), strings.Repeat("x", 30) + "..."},
		{"forty five truncated", long, long[:30] + "..."},
		{"multibyte runes counted once", strings.Repeat("日", 31), strings.Repeat("日", 30) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TitleFromDraft(tc.draft); got != tc.want {
				t.Fatalf("TitleFromDraft(%q) = %q, want %q", tc.draft, got, tc.want)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Fatalf("known roles should be valid")
	}
	if Role("system").Valid() {
		t.Fatalf("unknown role should be invalid")
	}
}
