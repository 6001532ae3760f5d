// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package portfolio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestSystemPrompt_Contents(t *testing.T) {
	prompt := Default().SystemPrompt()

	for _, want := range []string{
		"You are the AI assistant representing Anmol Kashyap, a full-stack developer based in Lucknow, Uttar Pradesh.",
		"Email: anmolkashyap12420@gmail.com",
		"IIITDM Kurnool (Graduation: 2026)",
		"1. Nudge (Social Dating Platform)",
		"https://www.nudgeapp.dev/",
		"Skills: C++, JavaScript (ES6+)",
		"100+ LeetCode problems solved.",
		"Always reply as Anmol's personal AI assistant.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("SystemPrompt() missing %q", want)
		}
	}
}

func TestMarkdown_Sections(t *testing.T) {
	md := Default().Markdown()

	hero := strings.Index(md, "# Building Anmol Kashyap")
	skills := strings.Index(md, "## Skills")
	projects := strings.Index(md, "## Projects")
	if hero < 0 || skills < 0 || projects < 0 {
		t.Fatalf("missing section: hero=%d skills=%d projects=%d", hero, skills, projects)
	}
	if !(hero < skills && skills < projects) {
		t.Errorf("sections out of order: hero=%d skills=%d projects=%d", hero, skills, projects)
	}
	if !strings.Contains(md, "[Play Store](https://play.google.com/store/apps/details?id=com.anonymous.TrueEra)") {
		t.Error("project link missing")
	}
}

func TestLoadFile_OverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	content := `
name = "Ada Lovelace"
email = "ada@example.com"
location = "London"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if p.Name != "Ada Lovelace" || p.Location != "London" {
		t.Errorf("overrides not applied: %+v", p)
	}
	if len(p.Projects) == 0 {
		t.Error("unspecified fields should keep built-in values")
	}
	if !strings.Contains(p.SystemPrompt(), "Always reply as Ada's personal AI assistant.") {
		t.Error("prompt should use the overridden first name")
	}
}

func TestLoadFile_Incomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(`name = ""`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrIncomplete) {
		t.Errorf("LoadFile() error = %v, want ErrIncomplete", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	p, err := Load("")
	if err != nil || p.Name != "Anmol Kashyap" {
		t.Errorf("Load(\"\") = %v, %v", p, err)
	}
}
