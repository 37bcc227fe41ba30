package browse

import (
	"fmt"
	"strconv"
	"strings"
)

// callbackPrefix tags button data handled by the browser UI.
const callbackPrefix = "br"

// Action is a decoded button press kind. The set is closed; anything
// else fails to parse.
type Action string

const (
	ActionClick      Action = "clk"         // entry pressed, open action menu
	ActionEnter      Action = "enter"       // descend into a directory
	ActionPage       Action = "pg"          // page delta
	ActionNav        Action = "nav"         // up / back
	ActionStream     Action = "act"         // dispatch the selected file
	ActionSetAudio   Action = "set_audio"   // radio audio selection
	ActionSetImage   Action = "set_image"   // radio cover selection
	ActionStartRadio Action = "start_radio" // dispatch the radio pair
	ActionNoop       Action = "noop"        // decorative button
	ActionClose      Action = "close"       // drop the session
)

var knownActions = map[Action]bool{
	ActionClick:      true,
	ActionEnter:      true,
	ActionPage:       true,
	ActionNav:        true,
	ActionStream:     true,
	ActionSetAudio:   true,
	ActionSetImage:   true,
	ActionStartRadio: true,
	ActionNoop:       true,
	ActionClose:      true,
}

// Callback is one decoded button press.
type Callback struct {
	Action Action
	// Index is the page-relative entry number for entry actions.
	Index int
	// Arg carries the free-form tail: the nav direction ("up",
	// "back"), or a modifier after an entry index ("dl").
	Arg string
}

// FormatCallback encodes an action and its argument into button data.
func FormatCallback(action Action, arg string) string {
	if arg == "" {
		return callbackPrefix + ":" + string(action)
	}
	return callbackPrefix + ":" + string(action) + ":" + arg
}

// ParseCallback decodes button data. Data without the browser prefix
// or with an unknown action tag errors rather than guessing.
func ParseCallback(data string) (*Callback, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] != callbackPrefix {
		return nil, fmt.Errorf("browse: not a browser callback: %q", data)
	}
	action := Action(parts[1])
	if !knownActions[action] {
		return nil, fmt.Errorf("browse: unknown action %q", parts[1])
	}

	cb := &Callback{Action: action}
	if len(parts) == 3 {
		cb.Arg = parts[2]
	}
	switch action {
	case ActionClick, ActionEnter, ActionPage, ActionStream, ActionSetAudio, ActionSetImage:
		numArg, rest, _ := strings.Cut(cb.Arg, ":")
		n, err := strconv.Atoi(numArg)
		if err != nil {
			return nil, fmt.Errorf("browse: action %s needs a numeric argument: %q", action, cb.Arg)
		}
		cb.Index = n
		cb.Arg = rest
	}
	return cb, nil
}
