package simulation

import "fmt"

const (
	positionVariable    = "position"
	integrateProgramKey = "simulation.integrate"
)

// Target is one half of a variable's double buffer.
type Target struct {
	Index int
	Label string
}

// Variable is a simulated quantity stored in a pair of targets. The integrator reads the current
// target and writes the other one; Swap flips them after a successful write. Its only dependency
// is itself: the previous state is the sole input driving the next one.
type Variable struct {
	name         string
	targets      [2]Target
	current      int
	dependencies []string
	programKey   string
}

func newVariable(name, programKey string) *Variable {
	return &Variable{
		name: name,
		targets: [2]Target{
			{Index: 0, Label: fmt.Sprintf("%s target 0", name)},
			{Index: 1, Label: fmt.Sprintf("%s target 1", name)},
		},
		dependencies: []string{name},
		programKey:   programKey,
	}
}

// Name returns the variable name.
func (v *Variable) Name() string {
	return v.name
}

// Current returns the index of the most recently written target.
func (v *Variable) Current() int {
	return v.current
}

// Next returns the index of the target the next pass writes.
func (v *Variable) Next() int {
	return 1 - v.current
}

// Target returns the target at index i (0 or 1).
func (v *Variable) Target(i int) Target {
	return v.targets[i&1]
}

// Swap makes the next target current.
func (v *Variable) Swap() {
	v.current = v.Next()
}

// Dependencies returns the names of the variables the integrator reads.
func (v *Variable) Dependencies() []string {
	return v.dependencies
}

// ProgramKey returns the pipeline key of the integrator program.
func (v *Variable) ProgramKey() string {
	return v.programKey
}
