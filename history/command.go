package history

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
)

// Command is one reversible edit. Apply runs the edit (the first call
// computes it, later calls replay it) and Reverse restores the state Apply
// started from.
type Command interface {
	Name() string
	Apply(s *core.Scene) error
	Reverse(s *core.Scene) error
}

// Group runs several commands as one undo step, e.g. every tile placed
// during a drag.
type Group struct {
	Label    string
	Commands []Command
}

func (g *Group) Name() string {
	if g.Label != "" {
		return g.Label
	}
	return fmt.Sprintf("group of %d", len(g.Commands))
}

// Apply runs the children in order. If one fails, the ones already applied
// are reversed so the scene is left as it was.
func (g *Group) Apply(s *core.Scene) error {
	for i, c := range g.Commands {
		if err := c.Apply(s); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := g.Commands[j].Reverse(s); rerr != nil {
					return fmt.Errorf("%s: rewind after %v: %w", g.Name(), err, rerr)
				}
			}
			return fmt.Errorf("%s: %s: %w", g.Name(), c.Name(), err)
		}
	}
	return nil
}

func (g *Group) Reverse(s *core.Scene) error {
	for i := len(g.Commands) - 1; i >= 0; i-- {
		if err := g.Commands[i].Reverse(s); err != nil {
			return fmt.Errorf("%s: %s: %w", g.Name(), g.Commands[i].Name(), err)
		}
	}
	return nil
}

// InvariantError reports that a recorded command could not be replayed
// against the scene. The engine panics with it: the history and the scene
// have diverged and continuing would corrupt both.
type InvariantError struct {
	Op      string
	Command string
	Err     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("history: %s %q: %v", e.Op, e.Command, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
