// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		want        ldFlags
	}{
		{
			"Development Build",
			"", "", "", "",
			"missing build flags: BuildName, BuildTime, BuildCommit, BuildVersion",
			ldFlags{Name: "spectrum", Time: "unknown", Commit: "unknown", Version: "unknown"},
		},
		{
			"Missing BuildCommit",
			"testapp", "2025-04-13", "", "v1.0.0",
			"missing build flags: BuildCommit",
			ldFlags{Name: "testapp", Time: "2025-04-13", Commit: "unknown", Version: "v1.0.0"},
		},
		{
			"Success Case",
			"testapp", "2025-04-13", "abcdef123", "v1.0.0",
			"",
			ldFlags{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = newFlags()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
			} else if err != nil {
				t.Errorf("Initialize() unexpected error: %v", err)
			}

			got := *GetBuildFlags()
			if got.Name != tt.want.Name || got.Time != tt.want.Time ||
				got.Commit != tt.want.Commit || got.Version != tt.want.Version {
				t.Errorf("GetBuildFlags() = %+v, want %+v", got, tt.want)
			}
			if got.Description != defaultDescription {
				t.Errorf("Description = %q", got.Description)
			}
		})
	}
}

func TestInstance(t *testing.T) {
	a, b := newFlags(), newFlags()
	if _, err := uuid.Parse(a.Instance); err != nil {
		t.Fatalf("Instance %q is not a UUID: %v", a.Instance, err)
	}
	if a.Instance == b.Instance {
		t.Errorf("two runs share instance %s", a.Instance)
	}
}

func TestString(t *testing.T) {
	f := &ldFlags{Name: "spectrum", Version: "v0.3.0", Commit: "abc", Time: "2026-01-02"}
	want := "spectrum v0.3.0 (commit abc, built 2026-01-02)"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
