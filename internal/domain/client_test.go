package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClientType(t *testing.T) {
	cases := []struct {
		raw  string
		want ClientType
	}{
		{"ide", ClientIDE},
		{" IDE ", ClientIDE},
		{"web", ClientWeb},
		{"mobile", ClientMobile},
		{"cli", ClientCLI},
		{"", ClientCLI},
		{"emacs", ClientCLI},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeClientType(tc.raw), "raw=%q", tc.raw)
	}
}

func TestNormalizeProjectType(t *testing.T) {
	cases := []struct {
		raw  string
		want ProjectType
	}{
		{"web_app", ProjectWebApp},
		{"API_SERVICE", ProjectAPIService},
		{"library", ProjectLibrary},
		{"infrastructure", ProjectInfrastructure},
		{"", ProjectGeneric},
		{"monorepo", ProjectGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeProjectType(tc.raw), "raw=%q", tc.raw)
	}
}

func TestMatchesPattern(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"bmad-task", "bmad-task", true},
		{"bmad-task", "bmad-*", true},
		{"bmad-task", "*", true},
		{"bmad-task", "bmad-plan", false},
		{"bmad-task", "task*", false},
		{"bmad-task", "", false},
		// Only a trailing * is a wildcard; elsewhere it is literal.
		{"bmad-task", "*task", false},
		{"bmad-*x", "bmad-*x", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchesPattern(tc.name, tc.pattern), "name=%q pattern=%q", tc.name, tc.pattern)
	}
}
