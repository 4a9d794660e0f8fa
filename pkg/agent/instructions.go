package agent

import (
	"fmt"
	"os"
	"strings"
)

// LoadInstructions reads an agent persona markdown file and converts it to a
// system prompt. A missing file is an error; personas are required, not
// optional flavor.
func LoadInstructions(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("agent file not found: %s: %w", path, err)
	}
	return ExtractInstructions(string(content)), nil
}

// ExtractInstructions converts persona markdown into instruction text.
// Recognized sections are assembled in a fixed order. The approach, style,
// and abilities headings are alternatives; only the first present is used.
func ExtractInstructions(content string) string {
	var instructions []string

	if role, ok := section(content, "## Role"); ok {
		instructions = append(instructions, "You are "+role)
	}

	if personality, ok := section(content, "## Personality"); ok {
		instructions = append(instructions, "\nPersonality traits:", personality)
	}

	if approach, ok := section(content, "## Investigation Approach"); ok {
		instructions = append(instructions, "\nInvestigation approach:", approach)
	} else if style, ok := section(content, "## Investigation Style"); ok {
		instructions = append(instructions, "\nInvestigation style:", style)
	} else if abilities, ok := section(content, "## Abilities"); ok {
		instructions = append(instructions, "\nAbilities:", abilities)
	}

	if phrases, ok := section(content, "## Key Phrases"); ok {
		instructions = append(instructions, "\nKey phrases to use:", phrases)
	}

	if strengths, ok := section(content, "## Strengths"); ok {
		instructions = append(instructions, "\nYour strengths:", strengths)
	}

	return strings.Join(instructions, "\n")
}

// section extracts the body under the given heading, up to the next heading.
func section(content, heading string) (string, bool) {
	_, after, found := strings.Cut(content, heading)
	if !found {
		return "", false
	}
	body, _, _ := strings.Cut(after, "##")
	return strings.TrimSpace(body), true
}
