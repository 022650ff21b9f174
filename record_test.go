package springs

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"crosswarped.com/springs/pkg/primitives"
)

func mustRecord(t testing.TB, line string) Record {
	t.Helper()
	r, err := ParseRecord(line)
	if err != nil {
		t.Fatalf("ParseRecord(%q): %v", line, err)
	}
	return r
}

func TestUnfold(t *testing.T) {
	tests := []struct {
		name string
		line string
		k    int
		want string
	}{
		{
			name: "single cell",
			line: ".# 1",
			k:    5,
			want: ".#?.#?.#?.#?.#",
		},
		{
			name: "three runs",
			line: "???.### 1,1,3",
			k:    5,
			want: "???.###????.###????.###????.###????.###",
		},
		{
			name: "factor one",
			line: "?#? 1",
			k:    1,
			want: "?#?",
		},
		{
			name: "factor below one",
			line: "?#? 1",
			k:    0,
			want: "?#?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRecord(t, tt.line)
			u := Unfold(r, tt.k)
			if got := u.Pattern.String(); got != tt.want {
				t.Errorf("Unfold().Pattern = %q, want %q", got, tt.want)
			}

			var want Constraint
			for range max(tt.k, 1) {
				want = append(want, r.Constraint...)
			}
			if diff := cmp.Diff(want, u.Constraint); diff != "" {
				t.Errorf("Unfold().Constraint mismatch (-want +got):\n%s", diff)
			}

			if got := r.Repr(); got != tt.line {
				t.Errorf("Unfold modified its input: %q, want %q", got, tt.line)
			}
		})
	}
}

func TestUnfold_One(t *testing.T) {
	for _, line := range []string{".# 1", "???.### 1,1,3", "#.# 1,1"} {
		r := mustRecord(t, line)
		if u := Unfold(r, 1); !u.Equal(r) {
			t.Errorf("Unfold(%q, 1) = %q", line, u.Repr())
		}
	}
}

func TestConstraint(t *testing.T) {
	tests := []struct {
		c       Constraint
		sum     int
		minLen  int
		display string
	}{
		{nil, 0, 0, ""},
		{Constraint{1}, 1, 1, "1"},
		{Constraint{1, 1, 3}, 5, 7, "1,1,3"},
		{Constraint{3, 2, 1}, 6, 8, "3,2,1"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := tt.c.Sum(); got != tt.sum {
				t.Errorf("Sum() = %d, want %d", got, tt.sum)
			}
			if got := tt.c.MinLength(); got != tt.minLen {
				t.Errorf("MinLength() = %d, want %d", got, tt.minLen)
			}
			if got := tt.c.String(); got != tt.display {
				t.Errorf("String() = %q, want %q", got, tt.display)
			}
		})
	}
}

func TestRecord_DebugString(t *testing.T) {
	r := NewRecord(primitives.MustParsePattern("?#."), Constraint{1})
	want := `Record{length: 3, unknowns: 1, pattern: "?#.", constraint: [1]}`
	if got := r.DebugString(); got != want {
		t.Errorf("DebugString() = %s, want %s", got, want)
	}
}
