package notes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTags_Table(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"case folded and deduped", []string{"Work", "work", "work"}, []string{"work"}},
		{"order preserved", []string{"b", "a", "b", "c"}, []string{"b", "a", "c"}},
		{"trimmed", []string{"  Go  ", "go"}, []string{"go"}},
		{"empties dropped", []string{"", "   ", "x"}, []string{"x"}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestDraft_Validate(t *testing.T) {
	ok := Draft{Title: "t", Content: "c", Visibility: Private}
	require.NoError(t, ok.Validate())

	for name, d := range map[string]Draft{
		"empty title":        {Title: "", Content: "c", Visibility: Private},
		"blank title":        {Title: "   ", Content: "c", Visibility: Private},
		"empty content":      {Title: "t", Content: "", Visibility: Public},
		"bad visibility":     {Title: "t", Content: "c", Visibility: "friends-only"},
		"missing visibility": {Title: "t", Content: "c"},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, d.Validate(), ErrValidation)
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	str := func(s string) *string { return &s }
	vis := func(v Visibility) *Visibility { return &v }

	require.NoError(t, Patch{}.Validate())
	require.NoError(t, Patch{Title: str("new"), Visibility: vis(Public)}.Validate())

	require.ErrorIs(t, Patch{Title: str("  ")}.Validate(), ErrValidation)
	require.ErrorIs(t, Patch{Content: str("")}.Validate(), ErrValidation)
	require.ErrorIs(t, Patch{Visibility: vis("x")}.Validate(), ErrValidation)
}
