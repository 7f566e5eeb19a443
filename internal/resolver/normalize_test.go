package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"branch prefix and paren spacing", "[강남] 포레스트 (FORREST)", "포레스트(forrest)"},
		{"canonical title", "포레스트(FORREST)", "포레스트(forrest)"},
		{"lowercase passthrough", "back to the scene", "backtothescene"},
		{"decorative glyphs stripped", "★ 머니머니부동산 ★", "머니머니부동산"},
		{"fullwidth punctuation stripped", "셜록 죽음의 전화!", "셜록죽음의전화"},
		{"inner bracket removed", "지옥 [신규] 테마", "지옥테마"},
		{"digits kept", "어느 겨울밤2", "어느겨울밤2"},
		{"empty", "", ""},
		{"only decoration", "[강남] ★", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"[강남] 포레스트 (FORREST)", "NOMON : THE ORDEAL", "fl[ae]sh"}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), in)
	}
}
