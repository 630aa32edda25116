// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides rich terminal output styling for the drydock CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Drydock color palette - hull steel and harbor water
var (
	// Primary palette (brightest to darkest)
	ColorSteelBright  = lipgloss.Color("#7FD4F5") // Bright steel - highlights
	ColorSteelPrimary = lipgloss.Color("#4DA8D8") // Primary steel - main brand color
	ColorSteelVibrant = lipgloss.Color("#3D8FC4") // Vibrant steel - interactive elements
	ColorSteelMedium  = lipgloss.Color("#33799F") // Medium steel - secondary elements
	ColorSteelDeep    = lipgloss.Color("#25608A") // Deep steel - borders, accents
	ColorSteelHull    = lipgloss.Color("#1F4E6E") // Hull steel - subtle accents

	// Dark palette (for backgrounds, muted elements)
	ColorGraving  = lipgloss.Color("#16384F") // Graving dock blue
	ColorBallast  = lipgloss.Color("#122C3F") // Ballast - darker backgrounds
	ColorMidwatch = lipgloss.Color("#0D2231") // Midwatch - deep backgrounds
	ColorSlate    = lipgloss.Color("#47565F") // Slate - muted text, borders
	ColorDarkest  = lipgloss.Color("#0B161F") // Darkest - near black

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#3DDC97") // Signal green for success
	ColorWarning = lipgloss.Color("#F5B041") // Crane amber for warnings
	ColorError   = lipgloss.Color("#E35D5B") // Rust red for errors
	ColorMuted   = lipgloss.Color("#47565F") // Slate for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	InfoBox    lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style

	// Status indicators
	StatusOK      lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
}{
	// Text styles
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorSteelBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorSteelPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorSteelBright).Bold(true),

	// Box styles
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSteelDeep).
		Padding(0, 1),
	InfoBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSteelPrimary).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	// Status indicators
	StatusOK:      lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	StatusWarning: lipgloss.NewStyle().SetString("⚠").Foreground(ColorWarning),
	StatusError:   lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	StatusPending: lipgloss.NewStyle().SetString("○").Foreground(ColorSlate),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconSkipped Icon = "◌"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconAnchor  Icon = "⚓"
	IconGear    Icon = "⚙"
	IconShip    Icon = "⛴"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending, IconSkipped:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconError.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Println(text)
	default:
		fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(os.Stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// StepStatus prints a provisioning step with its outcome
func StepStatus(name string, status Icon, detail string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("%s\t%s\t%s\n", status, name, detail)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", status.Render(), name)
	default:
		if detail != "" {
			fmt.Printf("%s %s %s\n", status.Render(), name, Styles.Muted.Render("("+detail+")"))
		} else {
			fmt.Printf("%s %s\n", status.Render(), name)
		}
	}
}

// Summary prints a summary line with step counts
func Summary(succeeded, failed, total int) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("SUMMARY: succeeded=%d failed=%d total=%d\n", succeeded, failed, total)
	default:
		fmt.Printf("\n%s %s  %s %s  %s %s\n",
			Styles.Success.Render(fmt.Sprintf("%d", succeeded)), Styles.Muted.Render("succeeded"),
			Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
			Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("total"),
		)
	}
}

// ProgressBar renders a simple progress bar
func ProgressBar(current, total int, width int) string {
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	empty := width - filled

	bar := Styles.Success.Render(repeatChar('█', filled)) +
		Styles.Muted.Render(repeatChar('░', empty))

	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
