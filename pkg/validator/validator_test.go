package validator

import (
	"strings"
	"testing"
)

func TestValidateStruct(t *testing.T) {
	type TestStruct struct {
		TemplateID  uint     `json:"templateId" validate:"required"`
		EmployeeIDs []int64  `json:"employeeIds" validate:"required,max=3"`
		Priority    string   `json:"priority" validate:"oneof=high medium low"`
		Image       string   `json:"signatureImage" validate:"required,min=8"`
		Percent     *float64 `json:"percent,omitempty" validate:"max=100"`
	}

	over := 150.0
	valid := func() TestStruct {
		return TestStruct{TemplateID: 1, EmployeeIDs: []int64{1, 2}, Priority: "high", Image: "iVBORw0KGgo="}
	}

	tests := []struct {
		name    string
		mutate  func(s *TestStruct)
		wantErr string
	}{
		{name: "valid struct", mutate: func(s *TestStruct) {}},
		{name: "empty priority is allowed", mutate: func(s *TestStruct) { s.Priority = "" }},
		{name: "missing template", mutate: func(s *TestStruct) { s.TemplateID = 0 }, wantErr: "templateId is required"},
		{name: "empty employee list", mutate: func(s *TestStruct) { s.EmployeeIDs = []int64{} }, wantErr: "employeeIds is required"},
		{name: "too many employees", mutate: func(s *TestStruct) { s.EmployeeIDs = []int64{1, 2, 3, 4} }, wantErr: "employeeIds must be at most 3 items"},
		{name: "unknown priority", mutate: func(s *TestStruct) { s.Priority = "urgent" }, wantErr: "priority must be one of high, medium, low"},
		{name: "blank image", mutate: func(s *TestStruct) { s.Image = "   " }, wantErr: "signatureImage is required"},
		{name: "short image", mutate: func(s *TestStruct) { s.Image = "abc" }, wantErr: "signatureImage must be at least 8 characters"},
		{name: "pointer over max", mutate: func(s *TestStruct) { s.Percent = &over }, wantErr: "percent must be at most 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid()
			tt.mutate(&input)
			err := ValidateStruct(&input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	if err := ValidateStruct("not a struct"); err == nil {
		t.Error("Expected error for non-struct input")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00 "); got != "hello" {
		t.Errorf("Expected %q, got %q", "hello", got)
	}
}
