package codegen

import "testing"

func TestLabelName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "l0"},
		{1, "l1"},
		{100, "l100"},
	}

	for _, tt := range tests {
		got := LabelName(tt.id)
		if got != tt.want {
			t.Errorf("LabelName(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSlotNames(t *testing.T) {
	pos, depth := SlotNames(12)
	if pos != "pos12" || depth != "depth12" {
		t.Errorf("SlotNames(12) = %q, %q", pos, depth)
	}
}

func TestRuleName(t *testing.T) {
	tests := []struct {
		index int
		rule  string
		want  string
	}{
		{0, "Start", "rule0Start"},
		{3, "expr", "rule3Expr"},
		{7, "end-of-line", "rule7End_of_line"},
		{2, "_", "rule2_"},
	}

	for _, tt := range tests {
		got := RuleName(tt.index, tt.rule)
		if got != tt.want {
			t.Errorf("RuleName(%d, %q) = %q, want %q", tt.index, tt.rule, got, tt.want)
		}
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"abc", "abc"},
		{"a-b", "a_b"},
		{"x.y z", "x_y_z"},
		{"é", "_"},
	}

	for _, tt := range tests {
		got := Identifier(tt.input)
		if got != tt.want {
			t.Errorf("Identifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLowerFirst(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"A", "a"},
		{"ABC", "aBC"},
		{"Hello", "hello"},
		{"hello", "hello"},
		{"1abc", "1abc"},
		{"_X", "_X"},
	}

	for _, tt := range tests {
		got := LowerFirst(tt.input)
		if got != tt.want {
			t.Errorf("LowerFirst(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestUpperFirst(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"a", "A"},
		{"abc", "Abc"},
		{"Hello", "Hello"},
		{"x", "X"},
		{"9lives", "9lives"},
		{"_x", "_x"},
	}

	for _, tt := range tests {
		got := UpperFirst(tt.input)
		if got != tt.want {
			t.Errorf("UpperFirst(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
