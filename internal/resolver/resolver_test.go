package resolver

import (
	"testing"

	"github.com/s-will/GitCATS/internal/repository/models"
)

func testConfig() *models.Configuration {
	return &models.Configuration{
		Participants: []models.Participant{
			{Name: "alice", Branch: "alice"},
			{Name: "bob", Branch: "bob"},
			{Name: "carol", Branch: "carol-branch"},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		branch    string
		wantName  string
		wantFound bool
	}{
		{"alice", "alice", true},
		{"bob#retry2", "bob", true},
		{"carol-branch", "carol", true},
		{"carol", "", false},
		{"charlie", "", false},
		{"Alice", "", false},
		{"alice2", "", false},
		{"alic", "", false},
		{"", "", false},
	}
	cfg := testConfig()
	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			p, found, err := Resolve(cfg, tt.branch)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found mismatch: expected %v, got %v", tt.wantFound, found)
			}
			if found && p.Name != tt.wantName {
				t.Fatalf("participant mismatch: expected %s, got %s", tt.wantName, p.Name)
			}
		})
	}
}

func TestResolveAmbiguousBranchIsConfigError(t *testing.T) {
	cfg := &models.Configuration{
		Participants: []models.Participant{
			{Name: "alice", Branch: "shared"},
			{Name: "bob", Branch: "shared"},
		},
	}
	_, _, err := Resolve(cfg, "shared#1")
	if err == nil {
		t.Fatal("expected error for ambiguous branch")
	}
	if _, ok := err.(*models.ConfigError); !ok {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}
