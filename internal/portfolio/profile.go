// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package portfolio holds the portfolio owner's profile.
//
// One Profile feeds both the landing page shown in the terminal UI and the
// system prompt the chat backend sends upstream, so what the page says and
// what the assistant knows stay in step.
package portfolio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Link is a labelled URL.
type Link struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// Project is one portfolio project card.
type Project struct {
	Title       string   `toml:"title"`
	Summary     string   `toml:"summary"` // one line used in the system prompt
	Period      string   `toml:"period"`
	Description string   `toml:"description"`
	Highlights  []string `toml:"highlights"`
	Tags        []string `toml:"tags"`
	Links       []Link   `toml:"links"`
}

// SkillGroup is a titled list of skills.
type SkillGroup struct {
	Title  string   `toml:"title"`
	Emoji  string   `toml:"emoji"`
	Skills []string `toml:"skills"`
}

// Profile is everything the page and the assistant know about the owner.
type Profile struct {
	Name         string       `toml:"name"`
	Role         string       `toml:"role"`
	Location     string       `toml:"location"`
	Email        string       `toml:"email"`
	GitHub       string       `toml:"github"`
	Education    string       `toml:"education"`
	Tagline      string       `toml:"tagline"`
	Availability string       `toml:"availability"`
	Stack        []string     `toml:"stack"`
	Badges       []string     `toml:"badges"`
	Projects     []Project    `toml:"projects"`
	SkillGroups  []SkillGroup `toml:"skill_groups"`
	PromptSkills []string     `toml:"prompt_skills"`
	Achievements []string     `toml:"achievements"`
	Tone         string       `toml:"tone"`
}

// Default returns the built-in profile.
func Default() *Profile {
	return &Profile{
		Name:         "Anmol Kashyap",
		Role:         "full-stack developer",
		Location:     "Lucknow, Uttar Pradesh",
		Email:        "anmolkashyap12420@gmail.com",
		GitHub:       "github.com/anmol",
		Education:    "B.Tech in Computer Science Engineering, IIITDM Kurnool (Graduation: 2026)",
		Tagline:      "CS undergraduate at IIITDM Kurnool (2026). I build scalable APIs, production mobile apps, and cloud-native systems, from edge network optimizations to pixel-perfect mobile UIs.",
		Availability: "Available for opportunities · Lucknow, India",
		Stack:        []string{"C++", "JavaScript", "TypeScript", "React Native", "Node.js", "Firebase", "Cloudflare Workers", "Python"},
		Badges:       []string{"B.Tech CSE · Grad 2026", "100+ LeetCode problems", "github.com/anmol"},
		Projects: []Project{
			{
				Title:       "Nudge — Social Dating Platform",
				Summary:     "Nudge (Social Dating Platform) - React Native, Expo, Firebase, Cloudflare Workers, Agora, MapLibre.",
				Period:      "Oct 2025 – Present",
				Description: "Full-stack social dating app on Google Play. Engineered from mobile to cloud with a focus on performance and scale.",
				Highlights: []string{
					"Cloudflare Workers proxy in front of Firebase Storage → cut egress costs by 90%.",
					"Global edge caching with Tiered Cache, WAF rules against hotlinking.",
					"Low-latency video pipeline with react-native-compressor + expo-video.",
					"Real-time calls via Agora SDK, geolocation features using Maptiler.",
					"Complex Expo CI/CD: Android builds, OTA updates, Play Store deployment.",
				},
				Tags:  []string{"React Native", "Expo", "Firebase", "Cloudflare Workers", "Agora", "MapLibre"},
				Links: []Link{{Label: "Play Store", URL: "https://play.google.com/store/apps/details?id=com.anonymous.TrueEra"}},
			},
			{
				Title:       "Nudge — Marketing Landing Page",
				Summary:     "Nudge Landing Page - React, TypeScript, Vite, Framer Motion. Serverless waitlist via Google Apps Script.",
				Period:      "2025",
				Description: "Conversion-focused landing page with advanced animations and a serverless waitlist backend.",
				Highlights: []string{
					"Scroll-linked parallax effects via Framer Motion.",
					"Serverless waitlist with Google Apps Script + Sheets, secure CORS handling.",
					"Bento grid layout, responsive design, modular component architecture.",
				},
				Tags:  []string{"React", "TypeScript", "Vite", "Framer Motion"},
				Links: []Link{{Label: "Visit Site", URL: "https://www.nudgeapp.dev/"}},
			},
		},
		SkillGroups: []SkillGroup{
			{Title: "Languages", Emoji: "🧠", Skills: []string{"C++", "JavaScript (ES6+)", "TypeScript", "Python"}},
			{Title: "Mobile", Emoji: "📱", Skills: []string{"React Native", "Expo", "OTA Updates", "Gradle"}},
			{Title: "Web / Backend", Emoji: "🌐", Skills: []string{"Node.js", "Express.js", "REST APIs", "MongoDB", "React"}},
			{Title: "Cloud & DevOps", Emoji: "☁️", Skills: []string{"Cloudflare Workers", "Edge Cache", "WAF Rules", "CI/CD (EAS)"}},
			{Title: "Firebase", Emoji: "🔥", Skills: []string{"Auth", "Firestore", "Storage", "Cloud Functions"}},
			{Title: "Media & Realtime", Emoji: "🎬", Skills: []string{"Agora SDK", "Video Compression", "MapLibre", "Maptiler"}},
		},
		PromptSkills: []string{
			"C++", "JavaScript (ES6+)", "TypeScript", "Python", "React Native", "Expo",
			"Node.js", "Express.js", "MERN Stack", "Firebase", "Cloudflare Workers",
			"Edge Caching", "CI/CD (Expo EAS)", "Agora", "Maptiler", "DSA", "OOP", "DBMS",
		},
		Achievements: []string{"100+ LeetCode problems solved."},
		Tone:         "Be concise, confident, and professional.",
	}
}

// ErrIncomplete is returned by Validate for profiles missing required fields.
var ErrIncomplete = errors.New("portfolio: profile incomplete")

// Validate checks the fields the page and prompt cannot do without.
func (p *Profile) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	for i, proj := range p.Projects {
		if strings.TrimSpace(proj.Title) == "" {
			missing = append(missing, fmt.Sprintf("projects[%d].title", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// LoadFile reads a TOML profile. Fields absent from the file keep their
// built-in values.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p := Default()
	if err := toml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load returns the profile at path, or Default when path is empty.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
