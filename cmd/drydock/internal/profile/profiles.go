// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package profile holds the embedded project profile catalog.

Profiles are baked into the binary with go:embed so a drydock release
provisions the same way everywhere: there is no on-disk catalog to
drift, edit, or lose. Each profile names a ddev project type, its
docroot, the ordered install steps, best-effort helper steps, and the
optional patches a run should try.

The catalog is parsed and validated once, on first use. An invalid
embedded catalog is a build defect, not a runtime condition, so Load
failing means the binary itself is broken.
*/
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrProfileNotFound is returned when no profile has the requested name.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidCatalog is returned when the catalog fails validation.
	ErrInvalidCatalog = errors.New("invalid profile catalog")
)

// =============================================================================
// Embedded Catalog
// =============================================================================

// embeddedProfiles holds the raw bytes of profiles.yaml.
//
// Populated at compile time by the embed directive. Baking the catalog
// into the binary keeps profiles immutable at runtime; changing them
// means shipping a new binary.
//
//go:embed profiles.yaml
var embeddedProfiles []byte

// =============================================================================
// Constants
// =============================================================================

// DefaultProfileName is the profile used when the operator names none.
const DefaultProfileName = "laravel"

// Step criticality values. A fatal step failure halts the run; a
// recoverable one is recorded and the run continues.
const (
	CriticalityFatal       = "fatal"
	CriticalityRecoverable = "recoverable"
)

// Step runner values. RunnerComposer goes through ddev's host-side
// composer wrapper; RunnerExec runs inside the web service.
const (
	RunnerExec     = "exec"
	RunnerComposer = "composer"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// profileValidate is the validator instance for catalog types.
// Initialized in init() with custom validators.
var profileValidate *validator.Validate

// profileNamePattern matches valid profile names. Profile names show up
// in CLI flags and patch directory paths, so they stay conservative.
var profileNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

func init() {
	profileValidate = validator.New()

	_ = profileValidate.RegisterValidation("profilename", validateProfileName)
}

func validateProfileName(fl validator.FieldLevel) bool {
	return profileNamePattern.MatchString(fl.Field().String())
}

// =============================================================================
// Catalog Types
// =============================================================================

// Step is one provisioning command.
type Step struct {
	// Name identifies the step in logs and the run report.
	Name string `yaml:"name" validate:"required"`

	// Runner selects how the command executes: "exec" (default, inside
	// the web service) or "composer" (ddev's host-side wrapper).
	Runner string `yaml:"runner" validate:"omitempty,oneof=exec composer"`

	// Command is the argv to run.
	Command []string `yaml:"command" validate:"required,min=1"`

	// Service overrides the target service for exec steps.
	Service string `yaml:"service"`

	// Dir overrides the working directory inside the container.
	Dir string `yaml:"dir"`

	// Criticality is "fatal" or "recoverable".
	Criticality string `yaml:"criticality" validate:"required,oneof=fatal recoverable"`
}

// IsFatal reports whether a failure of this step should halt the run.
func (s *Step) IsFatal() bool {
	return s.Criticality == CriticalityFatal
}

// RunnerOrDefault returns the step's runner, defaulting to exec.
func (s *Step) RunnerOrDefault() string {
	if s.Runner == "" {
		return RunnerExec
	}
	return s.Runner
}

// Patch is one optional unified-diff payload.
//
// The payload file lives under ~/.drydock/patches/<profile>/. A missing
// payload is not an error, the patch step simply skips.
type Patch struct {
	// Name identifies the patch in logs and the run report.
	Name string `yaml:"name" validate:"required"`

	// File is the payload filename inside the profile's patch directory.
	File string `yaml:"file" validate:"required"`

	// Target is the directory the diff applies against, relative to the
	// project root inside the environment.
	Target string `yaml:"target" validate:"required"`
}

// Profile describes how to provision one framework.
type Profile struct {
	// Name is the profile identifier used by --profile.
	Name string `yaml:"name" validate:"required,profilename"`

	// Description is the one-line summary shown by `drydock profiles`.
	Description string `yaml:"description" validate:"required"`

	// ProjectType is the ddev project type.
	ProjectType string `yaml:"projectType" validate:"required"`

	// Docroot is the web-served directory relative to the project root.
	Docroot string `yaml:"docroot"`

	// PHPVersion pins the PHP version, empty for ddev's default.
	PHPVersion string `yaml:"phpVersion"`

	// RequiredTools extends the baseline host tool requirements.
	RequiredTools []string `yaml:"requiredTools"`

	// InstallSteps are the ordered steps that build a working project.
	InstallSteps []Step `yaml:"installSteps" validate:"required,min=1,dive"`

	// HelperSteps are best-effort steps run after the install steps.
	HelperSteps []Step `yaml:"helperSteps" validate:"omitempty,dive"`

	// Patches are optional payloads applied after the helper steps.
	Patches []Patch `yaml:"patches" validate:"omitempty,dive"`
}

// Catalog is the full set of embedded profiles.
type Catalog struct {
	Profiles []Profile `yaml:"profiles" validate:"required,min=1,dive"`
}

// Validate checks the catalog against its struct tags plus the
// cross-cutting rules tags cannot express: unique profile names and the
// presence of the default profile.
func (c *Catalog) Validate() error {
	if err := profileValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]bool, len(c.Profiles))
	hasDefault := false
	for _, p := range c.Profiles {
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate profile name %q", ErrInvalidCatalog, p.Name)
		}
		seen[p.Name] = true
		if p.Name == DefaultProfileName {
			hasDefault = true
		}
	}
	if !hasDefault {
		return fmt.Errorf("%w: default profile %q is missing", ErrInvalidCatalog, DefaultProfileName)
	}
	return nil
}

// Names returns the profile names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Loading
// =============================================================================

var (
	loadOnce      sync.Once
	loadedCatalog *Catalog
	loadErr       error
)

// Load parses and validates the embedded catalog.
//
// The result is cached; every call after the first returns the same
// catalog. A non-nil error means the binary shipped with a broken
// profiles.yaml.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		loadedCatalog, loadErr = parseCatalog(embeddedProfiles)
	})
	return loadedCatalog, loadErr
}

// parseCatalog unmarshals and validates catalog bytes.
func parseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// List returns all embedded profiles sorted by name.
func List() ([]Profile, error) {
	catalog, err := Load()
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, len(catalog.Profiles))
	copy(profiles, catalog.Profiles)
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// Get returns the named profile.
//
// The error for an unknown name lists the available profiles, since the
// common cause is a typo on --profile.
func Get(name string) (*Profile, error) {
	catalog, err := Load()
	if err != nil {
		return nil, err
	}

	for i := range catalog.Profiles {
		if catalog.Profiles[i].Name == name {
			p := catalog.Profiles[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrProfileNotFound, name, strings.Join(catalog.Names(), ", "))
}

// Default returns the default profile.
func Default() (*Profile, error) {
	return Get(DefaultProfileName)
}
