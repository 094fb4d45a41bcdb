package params

import (
	"errors"
	"reflect"
	"testing"
)

func sampleDefaults() Tree {
	return Tree{
		"financing": Tree{
			"base_loan_seek_prob":        0.15,
			"credit_guarantee_available": false,
			"interest_rate_mean":         0.09,
		},
		"regulatory": Tree{
			"formalization_prob_factor": 0.02,
		},
		"sme_segmentation": Tree{
			"num_synthetic_smes": 1000,
			"size_distribution": Tree{
				"micro":  0.8,
				"small":  0.15,
				"medium": 0.05,
			},
		},
	}
}

func TestResolve_EmptyOverridesKeepsEveryLeaf(t *testing.T) {
	defaults := sampleDefaults()

	got, err := Resolve(defaults, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(LeafPaths(got), LeafPaths(defaults)) {
		t.Errorf("leaf paths = %v, want %v", LeafPaths(got), LeafPaths(defaults))
	}
	if !reflect.DeepEqual(got, defaults) {
		t.Errorf("Resolve(defaults, nil) = %v, want defaults unchanged", got)
	}
}

func TestResolve_OverrideWins(t *testing.T) {
	defaults := sampleDefaults()
	overrides := Tree{
		"financing": Tree{
			"credit_guarantee_available": true,
		},
		"sme_segmentation": Tree{
			"size_distribution": Tree{"micro": 0.7, "small": 0.25},
		},
	}

	got, err := Resolve(defaults, overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"financing.credit_guarantee_available", true},
		{"financing.base_loan_seek_prob", 0.15},
		{"sme_segmentation.size_distribution.micro", 0.7},
		{"sme_segmentation.size_distribution.small", 0.25},
		{"sme_segmentation.size_distribution.medium", 0.05},
		{"regulatory.formalization_prob_factor", 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := Lookup(got, tt.path)
			if !ok {
				t.Fatalf("path %s missing from resolved tree", tt.path)
			}
			if v != tt.want {
				t.Errorf("%s = %v, want %v", tt.path, v, tt.want)
			}
		})
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	defaults := sampleDefaults()
	overrides := Tree{"financing": Tree{"interest_rate_mean": 0.05}}

	if _, err := Resolve(defaults, overrides); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(defaults, sampleDefaults()) {
		t.Error("Resolve() mutated defaults")
	}
	if v, _ := Lookup(overrides, "financing.interest_rate_mean"); v != 0.05 {
		t.Errorf("Resolve() mutated overrides: %v", v)
	}
}

func TestResolve_UnknownKey(t *testing.T) {
	tests := []struct {
		name      string
		overrides Tree
		wantPath  string
	}{
		{"unknown section", Tree{"taxation": Tree{"rate": 0.3}}, "taxation"},
		{"unknown leaf", Tree{"financing": Tree{"loan_sek_prob": 0.3}}, "financing.loan_sek_prob"},
		{"unknown nested leaf", Tree{"sme_segmentation": Tree{"size_distribution": Tree{"large": 0.1}}}, "sme_segmentation.size_distribution.large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(sampleDefaults(), tt.overrides)
			var unknown *UnknownParameterError
			if !errors.As(err, &unknown) {
				t.Fatalf("Resolve() error = %v, want *UnknownParameterError", err)
			}
			if unknown.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", unknown.Path, tt.wantPath)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("error does not unwrap to ErrConfiguration")
			}
		})
	}
}

func TestResolve_UnknownKeyReportedDeterministically(t *testing.T) {
	overrides := Tree{
		"financing": Tree{"zeta": 1, "alpha": 2, "mu": 3},
	}
	for i := 0; i < 20; i++ {
		_, err := Resolve(sampleDefaults(), overrides)
		var unknown *UnknownParameterError
		if !errors.As(err, &unknown) {
			t.Fatalf("Resolve() error = %v, want *UnknownParameterError", err)
		}
		if unknown.Path != "financing.alpha" {
			t.Fatalf("iteration %d: Path = %q, want financing.alpha", i, unknown.Path)
		}
	}
}

func TestResolve_MalformedOverride(t *testing.T) {
	tests := []struct {
		name      string
		overrides Tree
	}{
		{"value over section", Tree{"financing": 0.5}},
		{"mapping over value", Tree{"financing": Tree{"base_loan_seek_prob": Tree{"min": 0.1}}}},
		{"null over value", Tree{"financing": Tree{"base_loan_seek_prob": nil}}},
		{"null over distribution weight", Tree{"sme_segmentation": Tree{"size_distribution": Tree{"micro": nil}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(sampleDefaults(), tt.overrides)
			var malformed *MalformedOverrideError
			if !errors.As(err, &malformed) {
				t.Fatalf("Resolve() error = %v, want *MalformedOverrideError", err)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("error does not unwrap to ErrConfiguration")
			}
		})
	}
}

func TestResolve_NullSectionKeepsDefaults(t *testing.T) {
	got, err := Resolve(sampleDefaults(), Tree{"regulatory": nil})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v, _ := Lookup(got, "regulatory.formalization_prob_factor"); v != 0.02 {
		t.Errorf("formalization_prob_factor = %v, want 0.02", v)
	}
}

func TestResolve_AcceptsInterfaceKeyedMaps(t *testing.T) {
	overrides := Tree{
		"financing": map[any]any{"interest_rate_mean": 0.07},
	}
	got, err := Resolve(sampleDefaults(), overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v, _ := Lookup(got, "financing.interest_rate_mean"); v != 0.07 {
		t.Errorf("interest_rate_mean = %v, want 0.07", v)
	}
}

func TestLeafPaths(t *testing.T) {
	got := LeafPaths(Tree{
		"b": Tree{"y": 1, "x": 2},
		"a": 3,
		"c": Tree{},
	})
	want := []string{"a", "b.x", "b.y", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LeafPaths() = %v, want %v", got, want)
	}
}
