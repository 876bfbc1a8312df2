package survey

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultScales(t *testing.T) {
	if got := DefaultScale(); !reflect.DeepEqual(got, Scale{0, 1, 2, 3}) {
		t.Errorf("DefaultScale = %v", got)
	}
	single := DefaultSingleScale()
	if len(single) != 11 || single[0] != 0 || single[10] != 10 {
		t.Errorf("DefaultSingleScale = %v", single)
	}
}

func TestScaleMax(t *testing.T) {
	if got := (Scale{}).Max(); got != 0 {
		t.Errorf("empty scale max = %d", got)
	}
	if got := (Scale{0, 1, 2, 3}).Max(); got != 3 {
		t.Errorf("max = %d, want 3", got)
	}
	// Order does not matter.
	if got := (Scale{3, 1, 2}).Max(); got != 3 {
		t.Errorf("unordered max = %d, want 3", got)
	}
}

func TestScaleValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		scale Scale
		ok    bool
	}{
		{"default", DefaultScale(), true},
		{"single default", DefaultSingleScale(), true},
		{"empty", Scale{}, false},
		{"negative", Scale{-1, 0, 1}, false},
		{"zero maximum", Scale{0, 0}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scale.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate(%v) = %v", tc.scale, err)
			}
			if !tc.ok {
				var confErr *ConfigurationError
				if !errors.As(err, &confErr) {
					t.Fatalf("Validate(%v) = %v, want ConfigurationError", tc.scale, err)
				}
			}
		})
	}
}

func TestParseScale(t *testing.T) {
	got, err := ParseScale("0,1,2,3")
	if err != nil {
		t.Fatalf("ParseScale: %v", err)
	}
	if !reflect.DeepEqual(got, Scale{0, 1, 2, 3}) {
		t.Errorf("ParseScale = %v", got)
	}

	got, err = ParseScale(" 0, 5 ,10")
	if err != nil {
		t.Fatalf("ParseScale with spaces: %v", err)
	}
	if !reflect.DeepEqual(got, Scale{0, 5, 10}) {
		t.Errorf("ParseScale with spaces = %v", got)
	}

	if _, err := ParseScale(""); err == nil {
		t.Error("expected error for empty spec")
	}
	if _, err := ParseScale("0,x,2"); err == nil {
		t.Error("expected error for non-numeric option")
	}
}
