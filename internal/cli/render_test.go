package cli

import (
	"testing"
)

func TestParseViews(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to canvas", "", []string{"canvas"}},
		{"single view", "diagram", []string{"diagram"}},
		{"multiple views", "canvas,diagram", []string{"canvas", "diagram"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseViews(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseViews(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseViews(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "png", []string{"png"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"dot only", "dot", []string{"dot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseFormats(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"valid svg", []string{"svg"}, false},
		{"valid png", []string{"png"}, false},
		{"valid pdf", []string{"pdf"}, false},
		{"valid dot", []string{"dot"}, false},
		{"valid multiple", []string{"svg", "png", "dot"}, false},
		{"invalid format", []string{"gif"}, true},
		{"mixed valid invalid", []string{"svg", "gif"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestValidateViews(t *testing.T) {
	tests := []struct {
		name    string
		views   []string
		wantErr bool
	}{
		{"canvas", []string{"canvas"}, false},
		{"diagram", []string{"diagram"}, false},
		{"both", []string{"canvas", "diagram"}, false},
		{"unknown view", []string{"blueprint"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateViews(tt.views)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateViews(%v) error = %v, wantErr %v", tt.views, err, tt.wantErr)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{"no output strips input extension", "", "momentum.json", "momentum"},
		{"no output or input", "", "", "strategy"},
		{"output with format extension", "out.svg", "momentum.json", "out"},
		{"output with unrelated extension", "out.backup", "momentum.json", "out.backup"},
		{"plain output", "renders/momentum", "momentum.json", "renders/momentum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}
