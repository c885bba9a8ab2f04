// Package replay drives a GatedStateStore with scripted chat events.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a set of sessions replayed concurrently.
type Script struct {
	Sessions []Session `yaml:"sessions"`
}

// Session is the ordered events of one chat participant.
// Channel and Participant may be strings or integers; either may be omitted.
type Session struct {
	Channel     any     `yaml:"channel"`
	Participant any     `yaml:"participant"`
	Events      []Event `yaml:"events"`
}

// Event is either a command message or a pause.
type Event struct {
	Command string   `yaml:"command"`
	Wait    Duration `yaml:"wait"`
}

// Duration is a time.Duration written as "1.5s" or "300ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadScript reads a script file.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return ParseScript(f)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(r io.Reader) (*Script, error) {
	var script Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("script is empty")
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// Validate checks that every event is exactly one of a command or a wait.
func (s *Script) Validate() error {
	for i, session := range s.Sessions {
		for j, ev := range session.Events {
			switch {
			case ev.Command != "" && ev.Wait != 0:
				return fmt.Errorf("sessions[%d].events[%d]: command and wait are exclusive", i, j)
			case ev.Command == "" && ev.Wait == 0:
				return fmt.Errorf("sessions[%d].events[%d]: command or wait is required", i, j)
			case ev.Wait < 0:
				return fmt.Errorf("sessions[%d].events[%d]: wait must not be negative", i, j)
			}
		}
	}
	return nil
}
