// Package dialog implements the /todo conversation: a six-state machine that collects
// the fields of a task through one evolving prompt message and then posts a summary.
package dialog

import "strconv"

// State is a step of the conversation.
type State int

// The declaration order is the enumeration order handed to the machine.
const (
	StateInit State = iota
	StateWaitForType
	StateWaitForHeader
	StateWaitForBoard
	StateWaitForSeverity
	StateWaitForAssignee
)

var stateNames = [...]string{
	StateInit:            "Init",
	StateWaitForType:     "WaitForType",
	StateWaitForHeader:   "WaitForHeader",
	StateWaitForBoard:    "WaitForBoard",
	StateWaitForSeverity: "WaitForSeverity",
	StateWaitForAssignee: "WaitForAssignee",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// States returns every state in declaration order.
func States() []State {
	return []State{
		StateInit,
		StateWaitForType,
		StateWaitForHeader,
		StateWaitForBoard,
		StateWaitForSeverity,
		StateWaitForAssignee,
	}
}
