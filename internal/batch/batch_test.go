package batch

import "testing"

func TestPage_HasText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", " \n\t\f ", false},
		{"real text", "Invoice #42", true},
		{"single rune", "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Page{Number: 1, Text: tt.text}
			if got := p.HasText(); got != tt.want {
				t.Errorf("HasText() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPage_ValidRotation(t *testing.T) {
	for _, angle := range []int{0, 90, 180, 270} {
		if !(Page{Rotation: angle}).ValidRotation() {
			t.Errorf("rotation %d should be valid", angle)
		}
	}
	for _, angle := range []int{-90, 45, 360} {
		if (Page{Rotation: angle}).ValidRotation() {
			t.Errorf("rotation %d should be invalid", angle)
		}
	}
}

func TestJob_Validate(t *testing.T) {
	j := NewJob("b1", []SourceFile{{Path: "/in/a.pdf", Name: "a.pdf"}})
	j.Pages = []Page{
		{Number: 1, Text: "one"},
		{Number: 2, Text: "two"},
	}
	if err := j.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	j.Pages = append(j.Pages, Page{Number: 2})
	if err := j.Validate(); err == nil {
		t.Fatal("expected duplicate page error")
	}

	j.Pages = []Page{{Number: 1, Rotation: 45}}
	if err := j.Validate(); err == nil {
		t.Fatal("expected invalid rotation error")
	}
}

func TestJob_PageNumbers(t *testing.T) {
	j := NewJob("b1", nil)
	j.Pages = []Page{{Number: 1}, {Number: 2}, {Number: 3}}

	nums := j.PageNumbers()
	if len(nums) != 3 {
		t.Fatalf("expected 3 page numbers, got %d", len(nums))
	}
	for i, n := range nums {
		if n != i+1 {
			t.Errorf("expected page %d at index %d, got %d", i+1, i, n)
		}
	}

	if p := j.Page(2); p == nil || p.Number != 2 {
		t.Errorf("Page(2) = %v, want page 2", p)
	}
	if p := j.Page(9); p != nil {
		t.Errorf("Page(9) = %v, want nil", p)
	}
}
