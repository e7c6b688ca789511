package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:   "1.2.3",
		BuildDate: "2024-06-01T00:00:00Z",
		GitCommit: "0123456789abcdef",
		GoVersion: "go1.24",
		Module:    "github.com/prepd/prepd",
	}

	out := info.String()
	assert.True(t, strings.HasPrefix(out, "prepd 1.2.3\n"))
	assert.Contains(t, out, "Git Commit: 0123456\n")
	assert.Contains(t, out, "Module: github.com/prepd/prepd\n")
}

func TestBuildInfoStringOmitsUnknowns(t *testing.T) {
	info := BuildInfo{Version: "dev", BuildDate: unknownValue, GitCommit: unknownValue, GoVersion: "go1.24"}

	out := info.String()
	assert.NotContains(t, out, "Build Date")
	assert.NotContains(t, out, "Git Commit")
}
