package models

import "fmt"

type Kind int

const (
	NetworkKind Kind = iota
	ServerKind
)

func (k Kind) String() string {
	switch k {
	case NetworkKind:
		return "network"
	case ServerKind:
		return "server"
	}
	return ""
}

type Action int

const (
	CreateAction Action = iota
	DeleteAction
	RestartAction
)

func (a Action) String() string {
	switch a {
	case CreateAction:
		return "create"
	case DeleteAction:
		return "delete"
	case RestartAction:
		return "restart"
	}
	return ""
}

type Outcome int

const (
	OK Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case Skipped:
		return "SKIPPED"
	case Failed:
		return "FAILED"
	}
	return ""
}

// Result describes what happened to one object during one action.
type Result struct {
	Kind    Kind
	Action  Action
	Name    string
	Outcome Outcome
	Reason  string
	Err     error

	// Dependencies holds results of objects created on demand, e.g. networks
	// a server is attached to.
	Dependencies []Result
}

func Succeeded(kind Kind, action Action, name string) Result {
	return Result{Kind: kind, Action: action, Name: name, Outcome: OK}
}

func SkippedBecause(kind Kind, action Action, name, reason string) Result {
	return Result{Kind: kind, Action: action, Name: name, Outcome: Skipped, Reason: reason}
}

func FailedWith(kind Kind, action Action, name string, err error) Result {
	return Result{Kind: kind, Action: action, Name: name, Outcome: Failed, Reason: err.Error(), Err: err}
}

func (r Result) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s %s %q: %s", r.Action, r.Kind, r.Name, r.Outcome)
	}
	return fmt.Sprintf("%s %s %q: %s: %s", r.Action, r.Kind, r.Name, r.Outcome, r.Reason)
}

// Report collects everything a single run produced.
type Report struct {
	Results  []Result
	Warnings []string
}

func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Failed reports whether any result, including dependencies, failed.
func (r Report) Failed() bool {
	var failed func([]Result) bool
	failed = func(results []Result) bool {
		for _, result := range results {
			if result.Outcome == Failed || failed(result.Dependencies) {
				return true
			}
		}
		return false
	}
	return failed(r.Results)
}
