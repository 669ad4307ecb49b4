package stockfish

import "fmt"

// Options is the complete set of engine options this client manages. The
// set is closed: option updates are validated against these names and
// types, so a typo or a wrongly typed value fails before anything reaches
// the engine. Boolean options take Go bools; the lowercase true/false wire
// tokens are produced at encode time.
type Options struct {
	DebugLogFile        string
	Contempt            int
	MinSplitDepth       int
	Threads             int
	Ponder              bool
	Hash                int
	MultiPV             int
	SkillLevel          int
	MoveOverhead        int
	MinimumThinkingTime int
	SlowMover           int
	Chess960            bool
	LimitStrength       bool
	Elo                 int
}

func defaultOptions() Options {
	return Options{
		Threads:             1,
		Hash:                16,
		MultiPV:             1,
		SkillLevel:          20,
		MoveOverhead:        10,
		MinimumThinkingTime: 20,
		SlowMover:           100,
		Elo:                 1350,
	}
}

// optionNames lists the managed options in wire-name form, in application
// order. Threads precedes Hash: the engine wants thread count settled
// before the hash table is sized.
var optionNames = []string{
	"Debug Log File",
	"Contempt",
	"Min Split Depth",
	"Threads",
	"Ponder",
	"Hash",
	"MultiPV",
	"Skill Level",
	"Move Overhead",
	"Minimum Thinking Time",
	"Slow Mover",
	"UCI_Chess960",
	"UCI_LimitStrength",
	"UCI_Elo",
}

func (o *Options) fieldFor(name string) (any, bool) {
	switch name {
	case "Debug Log File":
		return &o.DebugLogFile, true
	case "Contempt":
		return &o.Contempt, true
	case "Min Split Depth":
		return &o.MinSplitDepth, true
	case "Threads":
		return &o.Threads, true
	case "Ponder":
		return &o.Ponder, true
	case "Hash":
		return &o.Hash, true
	case "MultiPV":
		return &o.MultiPV, true
	case "Skill Level":
		return &o.SkillLevel, true
	case "Move Overhead":
		return &o.MoveOverhead, true
	case "Minimum Thinking Time":
		return &o.MinimumThinkingTime, true
	case "Slow Mover":
		return &o.SlowMover, true
	case "UCI_Chess960":
		return &o.Chess960, true
	case "UCI_LimitStrength":
		return &o.LimitStrength, true
	case "UCI_Elo":
		return &o.Elo, true
	}
	return nil, false
}

// value returns the current value of an option by wire name.
func (o *Options) value(name string) (any, bool) {
	f, ok := o.fieldFor(name)
	if !ok {
		return nil, false
	}
	switch f := f.(type) {
	case *string:
		return *f, true
	case *int:
		return *f, true
	case *bool:
		return *f, true
	}
	return nil, false
}

// setField stores a pre-validated value. Callers must have run
// validateOption first.
func (o *Options) setField(name string, v any) {
	f, ok := o.fieldFor(name)
	if !ok {
		return
	}
	switch f := f.(type) {
	case *string:
		*f, _ = v.(string)
	case *int:
		*f, _ = v.(int)
	case *bool:
		*f, _ = v.(bool)
	}
}

// reducedStrength reports whether search results will reflect less than
// full engine strength.
func (o *Options) reducedStrength() bool {
	return o.LimitStrength || o.SkillLevel < 20
}

func knownOption(name string) bool {
	var probe Options
	_, ok := probe.fieldFor(name)
	return ok
}

// validateOption checks that name is a managed option and that v has its
// exact Go type. In particular a boolean option given the string "true" is
// rejected: the wire rendering never leaks into the public API.
func validateOption(name string, v any) error {
	var probe Options
	f, ok := probe.fieldFor(name)
	if !ok {
		return fmt.Errorf("%w: unknown engine option '%s'", ErrInvalidArgument, name)
	}
	switch f.(type) {
	case *string:
		if _, ok := v.(string); !ok {
			return optionTypeError(name, "a string", v)
		}
	case *int:
		if _, ok := v.(int); !ok {
			return optionTypeError(name, "an int", v)
		}
	case *bool:
		if _, ok := v.(bool); !ok {
			return optionTypeError(name, "a bool", v)
		}
	}
	return nil
}

func optionTypeError(name, want string, got any) error {
	return fmt.Errorf("%w: option '%s' takes %s, got %T", ErrInvalidArgument, name, want, got)
}

type optionUpdate struct {
	name  string
	value any
}

// planUpdates validates a caller-supplied change set and orders it for
// application. When exactly one of Skill Level and UCI_Elo is given and
// UCI_LimitStrength is not, the flag is derived to match the caller's
// intent: a Skill Level change implies full-strength mode off the Elo
// ladder, an Elo change implies strength limiting on.
func planUpdates(params map[string]any) ([]optionUpdate, error) {
	if len(params) == 0 {
		return nil, nil
	}
	updates := make(map[string]any, len(params)+1)
	for name, v := range params {
		if err := validateOption(name, v); err != nil {
			return nil, err
		}
		updates[name] = v
	}
	_, hasSkill := updates["Skill Level"]
	_, hasElo := updates["UCI_Elo"]
	_, hasLimit := updates["UCI_LimitStrength"]
	if hasSkill != hasElo && !hasLimit {
		updates["UCI_LimitStrength"] = hasElo
	}
	plan := make([]optionUpdate, 0, len(updates))
	for _, name := range optionNames {
		if v, ok := updates[name]; ok {
			plan = append(plan, optionUpdate{name: name, value: v})
		}
	}
	return plan, nil
}
