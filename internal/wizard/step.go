package wizard

import "fmt"

type Step int

const (
	StepProjectType Step = iota + 1
	StepAddons
	StepContact
	StepResult
)

const TotalSteps = int(StepResult)

func (s Step) Valid() bool {
	return s >= StepProjectType && s <= StepResult
}

func (s Step) String() string {
	switch s {
	case StepProjectType:
		return "project_type"
	case StepAddons:
		return "addons"
	case StepContact:
		return "contact"
	case StepResult:
		return "result"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Direction hints the frontend which slide transition to play.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)
