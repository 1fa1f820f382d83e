package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mmynk/ledgerwise/internal/models"
)

func TestParseMembers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []models.Member
	}{
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
		{
			name:  "users and guests",
			input: "Alice=user-1, Bob = user-2 ,Guest",
			expected: []models.Member{
				{Name: "Alice", UserID: "user-1"},
				{Name: "Bob", UserID: "user-2"},
				{Name: "Guest"},
			},
		},
		{
			name:     "skips blank entries",
			input:    ",Alice=u1,,",
			expected: []models.Member{{Name: "Alice", UserID: "u1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMembers(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("parseMembers(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,,c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestLogCommand_PassesThrough(t *testing.T) {
	want := errors.New("boom")
	out, err := logCommand("balances", func() (any, error) { return "result", want })
	if out != "result" || !errors.Is(err, want) {
		t.Errorf("logCommand() = %v, %v", out, err)
	}
}
