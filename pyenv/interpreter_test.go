package pyenv

import (
	"context"
	"testing"

	"github.com/chuangyeshuo/vanadev/errors"
)

func TestParseVersionOutput(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Python 3.10.12\n", "3.10.12", false},
		{"Python 3.11.0", "3.11.0", false},
		{"Python 3.9", "3.9.0", false},
		{"pyenv: python: command not found", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		v, err := ParseVersionOutput(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVersionOutput(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && v.String() != tt.want {
			t.Errorf("ParseVersionOutput(%q) = %s, want %s", tt.in, v, tt.want)
		}
	}
}

func TestCandidateNames(t *testing.T) {
	names := CandidateNames(">=3.10, <3.11")
	if len(names) != 3 || names[0] != "python3.10" {
		t.Errorf("expected versioned candidate first, got %v", names)
	}

	names = CandidateNames("")
	if len(names) != 2 || names[0] != "python3" || names[1] != "python" {
		t.Errorf("expected generic fallbacks only, got %v", names)
	}
}

// stubFinder builds a Finder over a fixed name -> version table
func stubFinder(available map[string]string) *Finder {
	return &Finder{
		LookPath: func(name string) (string, error) {
			if _, ok := available[name]; ok {
				return "/usr/bin/" + name, nil
			}
			return "", errors.Newf("%s not found", name)
		},
		VersionOutput: func(ctx context.Context, path string) (string, error) {
			for name, version := range available {
				if path == "/usr/bin/"+name {
					return "Python " + version, nil
				}
			}
			return "", errors.New("no such interpreter")
		},
	}
}

func TestFindPrefersVersionedBinary(t *testing.T) {
	f := stubFinder(map[string]string{
		"python3.10": "3.10.12",
		"python3":    "3.12.1",
	})

	got, err := f.Find(context.Background(), ">=3.10, <3.11")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if got.Path != "/usr/bin/python3.10" {
		t.Errorf("expected python3.10 selected, got %s", got.Path)
	}
}

func TestFindFallsBackWhenVersionedMissing(t *testing.T) {
	f := stubFinder(map[string]string{
		"python3": "3.10.5",
	})

	got, err := f.Find(context.Background(), ">=3.10, <3.11")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if got.Path != "/usr/bin/python3" {
		t.Errorf("expected python3 fallback, got %s", got.Path)
	}
}

func TestFindRejectsUnsatisfiedConstraint(t *testing.T) {
	f := stubFinder(map[string]string{
		"python3": "3.9.7",
	})

	_, err := f.Find(context.Background(), ">=3.10")
	if !errors.Is(err, errors.ErrInterpreterNotFound) {
		t.Errorf("expected ErrInterpreterNotFound, got %v", err)
	}
}

func TestFindAnyPython(t *testing.T) {
	f := stubFinder(map[string]string{
		"python": "2.7.18",
	})

	// Empty constraint accepts whatever resolves
	got, err := f.Find(context.Background(), "")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if got.Version.String() != "2.7.18" {
		t.Errorf("unexpected version %s", got.Version)
	}
}

func TestFindInvalidConstraint(t *testing.T) {
	f := stubFinder(nil)
	if _, err := f.Find(context.Background(), "not-a-constraint"); err == nil {
		t.Error("expected error for malformed constraint")
	}
}
