package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"

	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/engine"
)

//go:embed default_team.yaml
var defaultTeamYAML []byte

// ErrInvalidTeam wraps every team file problem. It is fatal at startup.
var ErrInvalidTeam = errors.New("invalid team configuration")

// Team is the static roster, quota and quarter configuration.
type Team struct {
	Timezone  string         `yaml:"timezone"`
	Quarter   QuarterConfig  `yaml:"quarter"`
	Composite []string       `yaml:"composite"`
	Members   []MemberConfig `yaml:"members"`
}

// QuarterConfig holds the inclusive quarter bounds as YYYY-MM-DD.
type QuarterConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// MemberConfig is one roster entry with its quarterly targets.
type MemberConfig struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Targets map[string]int `yaml:"targets"`
}

// LoadTeam reads the team file at path, or the embedded default when path is empty.
func LoadTeam(path string) (Team, error) {
	raw := defaultTeamYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Team{}, fmt.Errorf("%w: read %s: %v", ErrInvalidTeam, path, err)
		}
		raw = data
	}
	return ParseTeam(raw)
}

// ParseTeam decodes a team document. Unknown keys are rejected so typos in
// category names surface at startup.
func ParseTeam(raw []byte) (Team, error) {
	var team Team
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&team); err != nil {
		return Team{}, fmt.Errorf("%w: %v", ErrInvalidTeam, err)
	}
	return team, nil
}

// Roster returns member ids in file order.
func (t Team) Roster() []string {
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.ID)
	}
	return out
}

// DisplayNames maps member ids to display names.
func (t Team) DisplayNames() map[string]string {
	out := make(map[string]string, len(t.Members))
	for _, m := range t.Members {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		out[m.ID] = name
	}
	return out
}

// Settings validates the team and converts it into engine settings.
func (t Team) Settings() (engine.Settings, error) {
	loc := time.UTC
	if t.Timezone != "" {
		l, err := time.LoadLocation(t.Timezone)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidTeam, t.Timezone, err)
		}
		loc = l
	}

	start, err := civil.ParseDate(t.Quarter.Start)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("%w: quarter start: %v", ErrInvalidTeam, err)
	}
	end, err := civil.ParseDate(t.Quarter.End)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("%w: quarter end: %v", ErrInvalidTeam, err)
	}
	quarter := engine.Quarter{Start: start, End: end}
	if err := quarter.Validate(); err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %v", ErrInvalidTeam, err)
	}

	composite := make([]domain.Category, 0, len(t.Composite))
	for _, raw := range t.Composite {
		c, err := domain.ParseCategory(raw)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("%w: composite: %v", ErrInvalidTeam, err)
		}
		composite = append(composite, c)
	}

	targets := make(map[string]engine.Targets, len(t.Members))
	for _, m := range t.Members {
		own := make(engine.Targets, len(m.Targets))
		for rawCat, n := range m.Targets {
			c, err := domain.ParseCategory(rawCat)
			if err != nil {
				return engine.Settings{}, fmt.Errorf("%w: member %s: %v", ErrInvalidTeam, m.ID, err)
			}
			own[c] = n
		}
		targets[m.ID] = own
	}

	quotas, err := engine.NewQuotaTable(t.Roster(), targets, composite)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidTeam, err)
	}

	return engine.Settings{Quarter: quarter, Quotas: quotas, Location: loc}, nil
}
