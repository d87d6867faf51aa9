package graph

import (
	"strings"
	"testing"

	"github.com/fbecker/strategraph/pkg/geometry"
)

func TestValidateConnection(t *testing.T) {
	tests := []struct {
		name         string
		seed         [][2]string // edges committed before validating
		source       string
		sourceHandle geometry.HandleKind
		target       string
		targetHandle geometry.HandleKind
		wantValid    bool
		wantErrs     int
		wantContains string
	}{
		{
			name:         "Valid",
			source:       "a",
			sourceHandle: geometry.HandleOutput,
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantValid:    true,
		},
		{
			name:         "ValidReversedDrag",
			source:       "a",
			sourceHandle: geometry.HandleInput,
			target:       "b",
			targetHandle: geometry.HandleOutput,
			wantValid:    true,
		},
		{
			name:         "EmptySource",
			source:       "",
			sourceHandle: geometry.HandleOutput,
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "endpoints",
		},
		{
			name:         "EmptyTarget",
			source:       "a",
			sourceHandle: geometry.HandleOutput,
			target:       "",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "endpoints",
		},
		{
			name:         "SelfLoop",
			source:       "a",
			sourceHandle: geometry.HandleOutput,
			target:       "a",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "itself",
		},
		{
			name:         "SourceMissing",
			source:       "ghost",
			sourceHandle: geometry.HandleOutput,
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "does not exist",
		},
		{
			name:         "BothMissing",
			source:       "ghost",
			sourceHandle: geometry.HandleOutput,
			target:       "phantom",
			targetHandle: geometry.HandleInput,
			wantErrs:     2,
		},
		{
			name:         "UnknownSourceHandle",
			source:       "a",
			sourceHandle: "middle",
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "unknown source handle",
		},
		{
			name:         "TwoOutputs",
			source:       "a",
			sourceHandle: geometry.HandleOutput,
			target:       "b",
			targetHandle: geometry.HandleOutput,
			wantErrs:     1,
			wantContains: "two output handles",
		},
		{
			name:         "TwoInputs",
			source:       "a",
			sourceHandle: geometry.HandleInput,
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "two input handles",
		},
		{
			name:         "Duplicate",
			seed:         [][2]string{{"a", "b"}},
			source:       "a",
			sourceHandle: geometry.HandleOutput,
			target:       "b",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "already exists",
		},
		{
			// Dragging b's input onto a's output normalizes to a -> b,
			// so it collides with the committed a -> b.
			name:         "DuplicateViaReversedDrag",
			seed:         [][2]string{{"a", "b"}},
			source:       "b",
			sourceHandle: geometry.HandleInput,
			target:       "a",
			targetHandle: geometry.HandleOutput,
			wantErrs:     1,
			wantContains: "already exists",
		},
		{
			name:         "TwoNodeCycle",
			seed:         [][2]string{{"a", "b"}},
			source:       "b",
			sourceHandle: geometry.HandleOutput,
			target:       "a",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "cycle",
		},
		{
			name:         "ThreeNodeCycle",
			seed:         [][2]string{{"a", "b"}, {"b", "c"}},
			source:       "c",
			sourceHandle: geometry.HandleOutput,
			target:       "a",
			targetHandle: geometry.HandleInput,
			wantErrs:     1,
			wantContains: "cycle",
		},
		{
			name:         "DiamondIsAcyclic",
			seed:         [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}},
			source:       "c",
			sourceHandle: geometry.HandleOutput,
			target:       "d",
			targetHandle: geometry.HandleInput,
			wantValid:    true,
		},
		{
			name:         "LongChainNoCycle",
			seed:         [][2]string{{"a", "b"}, {"b", "c"}},
			source:       "c",
			sourceHandle: geometry.HandleOutput,
			target:       "d",
			targetHandle: geometry.HandleInput,
			wantValid:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, "a", "b", "c", "d")
			for _, edge := range tt.seed {
				connect(t, m, edge[0], edge[1])
			}

			result := m.ValidateConnection(tt.source, tt.sourceHandle, tt.target, tt.targetHandle)

			if result.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (errors: %v)", result.IsValid, tt.wantValid, result.Errors)
			}
			if got := len(result.Errors); got != tt.wantErrs {
				t.Errorf("errors = %d, want %d: %v", got, tt.wantErrs, result.Errors)
			}
			if tt.wantContains != "" {
				joined := strings.Join(result.Errors, "; ")
				if !strings.Contains(joined, tt.wantContains) {
					t.Errorf("errors %q missing %q", joined, tt.wantContains)
				}
			}
		})
	}
}

func TestValidateConnectionDoesNotMutate(t *testing.T) {
	m := newTestManager(t, "a", "b")
	connect(t, m, "a", "b")

	m.ValidateConnection("a", geometry.HandleOutput, "b", geometry.HandleInput) // duplicate
	m.ValidateConnection("b", geometry.HandleOutput, "a", geometry.HandleInput) // cycle

	if got := m.ConnectionCount(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
	if _, ok := m.ActiveDraft(); ok {
		t.Error("validation opened a draft")
	}
}

func TestValidateConnectionWarnings(t *testing.T) {
	checker := checkerFunc(func(sourceType, targetType string) (bool, string) {
		if sourceType == "data-source" && targetType == "order" {
			return false, "price feeds should pass through a signal first"
		}
		return true, ""
	})

	newTyped := func(t *testing.T) *Manager {
		t.Helper()
		m := New(WithCompatibilityChecker(checker))
		if err := m.AddNode(Node{ID: "prices", Type: "data-source"}); err != nil {
			t.Fatal(err)
		}
		if err := m.AddNode(Node{ID: "buy", Type: "order", Position: geometry.Point{X: 400}}); err != nil {
			t.Fatal(err)
		}
		return m
	}

	t.Run("ForwardDrag", func(t *testing.T) {
		m := newTyped(t)
		result := m.ValidateConnection("prices", geometry.HandleOutput, "buy", geometry.HandleInput)
		if !result.IsValid {
			t.Fatalf("IsValid = false, errors: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("warnings = %v, want exactly one", result.Warnings)
		}
	})

	// Dragging from buy's input handle flips the stored direction; the
	// checker must still see data-source feeding order.
	t.Run("ReversedDrag", func(t *testing.T) {
		m := newTyped(t)
		result := m.ValidateConnection("buy", geometry.HandleInput, "prices", geometry.HandleOutput)
		if !result.IsValid {
			t.Fatalf("IsValid = false, errors: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("warnings = %v, want exactly one", result.Warnings)
		}
	})

	// Warnings never appear alongside errors.
	t.Run("SuppressedOnError", func(t *testing.T) {
		m := newTyped(t)
		connect(t, m, "prices", "buy")
		result := m.ValidateConnection("prices", geometry.HandleOutput, "buy", geometry.HandleInput)
		if result.IsValid {
			t.Fatal("duplicate validated as legal")
		}
		if len(result.Warnings) != 0 {
			t.Errorf("warnings = %v, want none on a failed validation", result.Warnings)
		}
	})
}

func TestWouldCreateCycleIgnoresDisconnectedSubgraphs(t *testing.T) {
	m := newTestManager(t, "a", "b", "c", "d")
	connect(t, m, "a", "b")
	connect(t, m, "c", "d")

	// Linking the two chains is fine in either order that stays acyclic.
	result := m.ValidateConnection("b", geometry.HandleOutput, "c", geometry.HandleInput)
	if !result.IsValid {
		t.Errorf("b -> c rejected: %v", result.Errors)
	}
	result = m.ValidateConnection("d", geometry.HandleOutput, "a", geometry.HandleInput)
	if !result.IsValid {
		t.Errorf("d -> a rejected: %v", result.Errors)
	}
}

func TestWouldCreateCycleAcrossJoinedChains(t *testing.T) {
	m := newTestManager(t, "a", "b", "c", "d")
	connect(t, m, "a", "b")
	connect(t, m, "b", "c")
	connect(t, m, "c", "d")

	result := m.ValidateConnection("d", geometry.HandleOutput, "a", geometry.HandleInput)
	if result.IsValid {
		t.Error("closing a four-node loop validated as legal")
	}
}
