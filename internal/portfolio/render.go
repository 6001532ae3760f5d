// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package portfolio

import (
	"fmt"
	"strings"
)

// Markdown renders the landing page: hero, skills, then projects.
func (p *Profile) Markdown() string {
	var b strings.Builder

	if p.Availability != "" {
		fmt.Fprintf(&b, "_%s_\n\n", p.Availability)
	}
	fmt.Fprintf(&b, "# Building %s\n\n", p.Name)
	if p.Tagline != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Tagline)
	}
	if len(p.Badges) > 0 {
		fmt.Fprintf(&b, "%s\n\n", strings.Join(p.Badges, " · "))
	}
	if len(p.Stack) > 0 {
		codes := make([]string, len(p.Stack))
		for i, s := range p.Stack {
			codes[i] = "`" + s + "`"
		}
		fmt.Fprintf(&b, "%s\n\n", strings.Join(codes, " "))
	}
	b.WriteString("> Press **ctrl+o** to chat with my resume.\n\n")

	if len(p.SkillGroups) > 0 {
		b.WriteString("## Skills\n\n")
		for _, g := range p.SkillGroups {
			title := g.Title
			if g.Emoji != "" {
				title = g.Emoji + " " + title
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", title, strings.Join(g.Skills, ", "))
		}
		b.WriteString("\n")
	}

	if len(p.Projects) > 0 {
		b.WriteString("## Projects\n\n")
		for _, proj := range p.Projects {
			fmt.Fprintf(&b, "### %s\n\n", proj.Title)
			if proj.Period != "" {
				fmt.Fprintf(&b, "_%s_\n\n", proj.Period)
			}
			if proj.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", proj.Description)
			}
			for _, h := range proj.Highlights {
				fmt.Fprintf(&b, "- %s\n", h)
			}
			if len(proj.Highlights) > 0 {
				b.WriteString("\n")
			}
			if len(proj.Tags) > 0 {
				fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(proj.Tags, ", "))
			}
			for _, l := range proj.Links {
				fmt.Fprintf(&b, "[%s](%s)\n\n", l.Label, l.URL)
			}
		}
	}

	if p.Email != "" {
		fmt.Fprintf(&b, "---\n\nContact: %s\n", p.Email)
	}
	return b.String()
}

// SystemPrompt renders the persona prompt for the upstream model.
func (p *Profile) SystemPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the AI assistant representing %s", p.Name)
	if p.Role != "" {
		fmt.Fprintf(&b, ", a %s", p.Role)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, " based in %s", p.Location)
	}
	b.WriteString(".\n\n")

	if p.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", p.Email)
	}
	if p.Education != "" {
		fmt.Fprintf(&b, "Education: %s.\n", strings.TrimSuffix(p.Education, "."))
	}

	if len(p.Projects) > 0 {
		b.WriteString("\nProjects:\n")
		for i, proj := range p.Projects {
			summary := proj.Summary
			if summary == "" {
				summary = proj.Title
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, summary)
			for _, h := range proj.Highlights {
				fmt.Fprintf(&b, "   - %s\n", h)
			}
			for _, l := range proj.Links {
				fmt.Fprintf(&b, "   - %s: %s\n", l.Label, l.URL)
			}
		}
	}

	skills := p.PromptSkills
	if len(skills) == 0 {
		for _, g := range p.SkillGroups {
			skills = append(skills, g.Skills...)
		}
	}
	if len(skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s.\n", strings.Join(skills, ", "))
	}
	if len(p.Achievements) > 0 {
		fmt.Fprintf(&b, "Achievements: %s\n", strings.Join(p.Achievements, " "))
	}

	first := p.Name
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	fmt.Fprintf(&b, "\nAlways reply as %s's personal AI assistant.", first)
	if p.Tone != "" {
		fmt.Fprintf(&b, " %s", p.Tone)
	}
	return b.String()
}
