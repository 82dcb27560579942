package domain

import "testing"

func TestCategorize(t *testing.T) {
	bugLabels := []string{"bug", "type:bug"}

	cases := []struct {
		name   string
		labels []string
		want   string
	}{
		{"exact match", []string{"bug"}, CategoryBug},
		{"exact match among others", []string{"help wanted", "type:bug"}, CategoryBug},
		{"substring match", []string{"critical-bug"}, CategoryBug},
		{"no match", []string{"enhancement", "docs"}, CategoryChange},
		{"no labels", nil, CategoryChange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Categorize(tc.labels, bugLabels); got != tc.want {
				t.Errorf("Categorize(%v) = %q, want %q", tc.labels, got, tc.want)
			}
		})
	}
}

func TestCategorizeExactBeatsSubstring(t *testing.T) {
	// "defect" is a substring of "defect-tracker", but the exact pass must
	// already classify on the plain label
	if got := Categorize([]string{"defect"}, []string{"defect"}); got != CategoryBug {
		t.Fatalf("got %q", got)
	}
}
