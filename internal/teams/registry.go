package teams

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrTeamNotFound is returned for lookups of unknown team keys.
var ErrTeamNotFound = errors.New("team not found")

// AgentRole is one debate participant. A role is a prompt-shaping
// configuration, not a separate process: the persona sets tone, the
// responsibility scopes what the role argues about.
type AgentRole struct {
	Name           string `json:"name" koanf:"name"`
	Icon           string `json:"icon,omitempty" koanf:"icon"`
	Persona        string `json:"persona" koanf:"persona"`
	Responsibility string `json:"responsibility" koanf:"responsibility"`
	DecisionMaker  bool   `json:"decision_maker" koanf:"decision_maker"`
}

// Team is a fixed set of agent roles configured for one analytical domain.
type Team struct {
	Key     string      `json:"key" koanf:"key"`
	Name    string      `json:"name" koanf:"name"`
	Mission string      `json:"mission,omitempty" koanf:"mission"`
	Roles   []AgentRole `json:"roles" koanf:"roles"`
}

// Members returns the non-decision-maker roles in definition order.
func (t Team) Members() []AgentRole {
	var out []AgentRole
	for _, r := range t.Roles {
		if !r.DecisionMaker {
			out = append(out, r)
		}
	}
	return out
}

// DecisionMaker returns the role that issues the final ruling.
func (t Team) DecisionMaker() (AgentRole, bool) {
	for _, r := range t.Roles {
		if r.DecisionMaker {
			return r, true
		}
	}
	return AgentRole{}, false
}

// ConfigError reports a malformed team definition. Definitions are
// validated once at startup; a bad one is fatal, never a runtime surprise.
type ConfigError struct {
	Team   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("team %q: %s", e.Team, e.Reason)
}

// Registry is the immutable team catalog. Built once at startup and safe
// for unsynchronized concurrent reads afterwards.
type Registry struct {
	byKey map[string]Team
	order []string
}

// NewRegistry validates the definitions and builds the catalog.
func NewRegistry(defs []Team) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Team, len(defs))}
	for _, t := range defs {
		if err := validateTeam(t); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[t.Key]; dup {
			return nil, &ConfigError{Team: t.Key, Reason: "duplicate team key"}
		}
		r.byKey[t.Key] = t
		r.order = append(r.order, t.Key)
	}
	return r, nil
}

// Get looks a team up by key.
func (r *Registry) Get(key string) (Team, error) {
	t, ok := r.byKey[key]
	if !ok {
		return Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, key)
	}
	return t, nil
}

// List returns all teams in definition order.
func (r *Registry) List() []Team {
	out := make([]Team, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

func validateTeam(t Team) error {
	if t.Key == "" {
		return &ConfigError{Team: t.Name, Reason: "empty key"}
	}
	if t.Name == "" {
		return &ConfigError{Team: t.Key, Reason: "empty name"}
	}
	if len(t.Roles) == 0 {
		return &ConfigError{Team: t.Key, Reason: "no roles defined"}
	}

	seen := make(map[string]bool, len(t.Roles))
	var members, makers int
	for _, role := range t.Roles {
		if role.Name == "" {
			return &ConfigError{Team: t.Key, Reason: "role with empty name"}
		}
		if seen[role.Name] {
			return &ConfigError{Team: t.Key, Reason: fmt.Sprintf("duplicate role %q", role.Name)}
		}
		seen[role.Name] = true
		if role.DecisionMaker {
			makers++
		} else {
			members++
		}
	}
	if makers != 1 {
		return &ConfigError{Team: t.Key, Reason: fmt.Sprintf("need exactly one decision maker, found %d", makers)}
	}
	if members < 1 {
		return &ConfigError{Team: t.Key, Reason: "need at least one debating member"}
	}
	return nil
}

// LoadFile reads team definitions from a TOML file of [[teams]] blocks,
// replacing the built-in catalog entirely.
func LoadFile(path string) ([]Team, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading teams file: %w", err)
	}

	var out struct {
		Teams []Team `koanf:"teams"`
	}
	if err := k.Unmarshal("", &out); err != nil {
		return nil, fmt.Errorf("error unmarshalling teams file: %w", err)
	}
	return out.Teams, nil
}
