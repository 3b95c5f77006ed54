package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <character.json> [character.json ...]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &CharacterValidator{}
	failed := false

	for _, filename := range os.Args[1:] {
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid\n", filename)
	}

	if failed {
		os.Exit(1)
	}
}

type CharacterValidator struct {
	errors []string
}

func (v *CharacterValidator) validateFile(filename string) error {
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("character file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidCharacterFilename(nameWithoutExt) {
		return fmt.Errorf("character filename %q must be lowercase kebab-case (e.g. james-blackwood.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var c character.Character
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&c); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.validateCharacter(&c, nameWithoutExt)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *CharacterValidator) validateCharacter(c *character.Character, filename string) {
	if err := c.Validate(); err != nil {
		v.errors = append(v.errors, "  - "+err.Error())
	}

	if c.ID != filename {
		v.errors = append(v.errors, fmt.Sprintf("  - id %q does not match filename %q", c.ID, filename))
	}

	roster := timeline.Roster()
	if !inRoster(roster, c.ID) {
		v.errors = append(v.errors, fmt.Sprintf("  - id %q is not in the timeline roster", c.ID))
	}
	if _, ok := timeline.ConstraintsFor(c.ID); !ok {
		v.errors = append(v.errors, fmt.Sprintf("  - no timeline constraints defined for %q", c.ID))
	}

	for other := range c.Relationships {
		if other == c.ID {
			v.errors = append(v.errors, "  - relationships must not reference the character itself")
			continue
		}
		if !inRoster(roster, other) {
			v.errors = append(v.errors, fmt.Sprintf("  - relationship references unknown character %q", other))
		}
	}

	if len(c.ResponsePatterns) == 0 {
		v.errors = append(v.errors, "  - at least one response pattern is required")
	}
	if c.Backstory == "" {
		v.errors = append(v.errors, "  - backstory is required")
	}
}

func inRoster(roster []string, id string) bool {
	for _, r := range roster {
		if r == id {
			return true
		}
	}
	return false
}

var characterFilenamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func isValidCharacterFilename(name string) bool {
	return characterFilenamePattern.MatchString(name)
}
