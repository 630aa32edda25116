// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel defines the verbosity and richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables all visual flourishes and rich formatting
	PersonalityFull PersonalityLevel = "full"

	// PersonalityStandard enables colors, icons, and boxes but minimal theming
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons and basic formatting only
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain text suitable for scripting and parsing
	PersonalityMachine PersonalityLevel = "machine"
)

// Personality holds the current UX personality configuration
type Personality struct {
	// Level controls overall verbosity (full, standard, minimal, machine)
	Level PersonalityLevel

	// Theme is the color theme (reserved for future use)
	Theme string

	// ShowHints enables post-run hints such as follow-up commands
	ShowHints bool
}

var (
	currentPersonality = Personality{
		Level:     PersonalityStandard,
		Theme:     "default",
		ShowHints: true,
	}
	personalityMu sync.RWMutex
)

// GetPersonality returns the current personality settings
func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

// SetPersonality updates the current personality settings
func SetPersonality(p Personality) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality = p
}

// SetPersonalityLevel updates just the personality level
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality.Level = level
}

// ParsePersonalityLevel converts a string to PersonalityLevel
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(s) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality initializes personality from the execution context.
// Piped or redirected output drops straight to machine mode so scripts
// never have to strip ANSI sequences.
func InitPersonality() {
	if !isTerminal() {
		SetPersonalityLevel(PersonalityMachine)
		return
	}

	SetPersonalityLevel(PersonalityStandard)
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive returns true if we should show interactive prompts
func IsInteractive() bool {
	p := GetPersonality()
	return p.Level != PersonalityMachine && isTerminal()
}

// ShouldShowProgress returns true if we should show progress indicators
func ShouldShowProgress() bool {
	p := GetPersonality()
	return p.Level != PersonalityMachine
}

// ShouldShowColors returns true if we should use colors
func ShouldShowColors() bool {
	p := GetPersonality()
	return p.Level != PersonalityMachine
}

// DefaultPersonality returns the default personality settings
func DefaultPersonality() Personality {
	return Personality{
		Level:     PersonalityStandard,
		Theme:     "default",
		ShowHints: true,
	}
}
