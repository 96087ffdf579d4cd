package history

import (
	"errors"
	"fmt"

	"github.com/gekko3d/tilesmith/core"
)

// DefaultLimit is the number of undo steps kept.
const DefaultLimit = 100

var (
	ErrNothingToUndo = errors.New("history: nothing to undo")
	ErrNothingToRedo = errors.New("history: nothing to redo")
	ErrGestureOpen   = errors.New("history: gesture in progress")
	ErrNoGesture     = errors.New("history: no gesture in progress")
)

// Logger is the subset of the application logger the engine writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type entry struct {
	cmd Command
	seq uint64
}

// Engine keeps a linear undo stack over one scene. Executing a command while
// not at the tip discards the redo stack.
type Engine struct {
	scene  *core.Scene
	logger Logger
	limit  int

	undo []entry
	redo []entry

	seq     uint64
	base    uint64 // seq of the newest entry dropped off the bottom
	savedAt uint64

	gesture *Group
}

func NewEngine(scene *core.Scene, limit int, logger Logger) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{scene: scene, logger: logger, limit: limit}
}

func (e *Engine) Scene() *core.Scene { return e.scene }

// Execute applies c and records it. A failed command leaves no history
// entry. While a gesture is open the command joins the gesture instead.
func (e *Engine) Execute(c Command) error {
	if err := c.Apply(e.scene); err != nil {
		if errors.Is(err, core.ErrDanglingReference) {
			e.logger.Errorf("%s aborted: %v", c.Name(), err)
		} else {
			e.logger.Warnf("%s rejected: %v", c.Name(), err)
		}
		return err
	}
	if e.gesture != nil {
		e.gesture.Commands = append(e.gesture.Commands, c)
		e.logger.Debugf("%s joined gesture %q", c.Name(), e.gesture.Label)
		return nil
	}
	e.push(c)
	e.logger.Debugf("executed %s", c.Name())
	return nil
}

func (e *Engine) push(c Command) {
	e.seq++
	e.undo = append(e.undo, entry{cmd: c, seq: e.seq})
	e.redo = nil
	e.trim()
}

// trim drops the oldest entries past the limit.
func (e *Engine) trim() {
	if drop := len(e.undo) - e.limit; drop > 0 {
		e.base = e.undo[drop-1].seq
		e.undo = e.undo[drop:]
	}
}

// Undo reverses the most recent command. A command that no longer matches
// the scene is a broken invariant and panics with *InvariantError.
func (e *Engine) Undo() error {
	if e.gesture != nil {
		return ErrGestureOpen
	}
	n := len(e.undo)
	if n == 0 {
		return ErrNothingToUndo
	}
	top := e.undo[n-1]
	if err := top.cmd.Reverse(e.scene); err != nil {
		e.fail("undo", top.cmd, err)
	}
	e.undo = e.undo[:n-1]
	e.redo = append(e.redo, top)
	e.logger.Debugf("undid %s", top.cmd.Name())
	return nil
}

func (e *Engine) Redo() error {
	if e.gesture != nil {
		return ErrGestureOpen
	}
	n := len(e.redo)
	if n == 0 {
		return ErrNothingToRedo
	}
	top := e.redo[n-1]
	if err := top.cmd.Apply(e.scene); err != nil {
		e.fail("redo", top.cmd, err)
	}
	e.redo = e.redo[:n-1]
	e.undo = append(e.undo, top)
	e.logger.Debugf("redid %s", top.cmd.Name())
	return nil
}

func (e *Engine) fail(op string, c Command, err error) {
	ie := &InvariantError{Op: op, Command: c.Name(), Err: err}
	e.logger.Errorf("%v", ie)
	panic(ie)
}

// BeginGesture starts coalescing executed commands into one undo step.
func (e *Engine) BeginGesture(name string) error {
	if e.gesture != nil {
		return ErrGestureOpen
	}
	e.gesture = &Group{Label: name}
	return nil
}

func (e *Engine) InGesture() bool { return e.gesture != nil }

// EndGesture records the gesture as a single command. Empty gestures leave
// no entry; the result reports whether one was pushed.
func (e *Engine) EndGesture() (bool, error) {
	g := e.gesture
	if g == nil {
		return false, ErrNoGesture
	}
	e.gesture = nil
	if len(g.Commands) == 0 {
		return false, nil
	}
	e.push(g)
	e.logger.Debugf("executed gesture %s (%d steps)", g.Name(), len(g.Commands))
	return true, nil
}

// CancelGesture reverses everything the open gesture applied.
func (e *Engine) CancelGesture() error {
	g := e.gesture
	if g == nil {
		return ErrNoGesture
	}
	e.gesture = nil
	if err := g.Reverse(e.scene); err != nil {
		e.fail("cancel", g, err)
	}
	return nil
}

func (e *Engine) CanUndo() bool { return len(e.undo) > 0 && e.gesture == nil }
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 && e.gesture == nil }
func (e *Engine) UndoLen() int  { return len(e.undo) }
func (e *Engine) RedoLen() int  { return len(e.redo) }
func (e *Engine) Limit() int    { return e.limit }

// SetLimit changes the undo depth, dropping the oldest entries if needed.
func (e *Engine) SetLimit(n int) {
	if n <= 0 {
		n = DefaultLimit
	}
	e.limit = n
	e.trim()
}

// UndoName names the command Undo would reverse.
func (e *Engine) UndoName() string {
	if len(e.undo) == 0 {
		return ""
	}
	return e.undo[len(e.undo)-1].cmd.Name()
}

func (e *Engine) RedoName() string {
	if len(e.redo) == 0 {
		return ""
	}
	return e.redo[len(e.redo)-1].cmd.Name()
}

func (e *Engine) tip() uint64 {
	if len(e.undo) == 0 {
		return e.base
	}
	return e.undo[len(e.undo)-1].seq
}

// Dirty reports unsaved changes: the stack tip differs from the one
// recorded by MarkSaved.
func (e *Engine) Dirty() bool {
	return e.tip() != e.savedAt || e.gesture != nil && len(e.gesture.Commands) > 0
}

func (e *Engine) MarkSaved() { e.savedAt = e.tip() }

// Clear forgets all history, e.g. after loading a scene.
func (e *Engine) Clear() {
	if e.gesture != nil {
		e.logger.Warnf("clearing history with open gesture %q", e.gesture.Label)
	}
	e.undo, e.redo, e.gesture = nil, nil, nil
	e.base = e.seq
	e.savedAt = e.base
}

// Reset clears history and rebinds the engine to a new scene.
func (e *Engine) Reset(scene *core.Scene) {
	e.Clear()
	e.scene = scene
}

func (e *Engine) String() string {
	return fmt.Sprintf("history(%d undo, %d redo)", len(e.undo), len(e.redo))
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
