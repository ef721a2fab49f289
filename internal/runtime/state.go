package runtime

import "fmt"

// State is a managed session's lifecycle state.
type State string

const (
	StateDetached State = "detached"
	StateSpawning State = "spawning"
	StateActive   State = "active"
	StateExited   State = "exited"
)

// String returns the state name. exitedLabel renders an exited state with
// its exit code, matching how the teacher's process-state logging reports a
// dead child.
func (s State) String() string {
	return string(s)
}

func exitedLabel(code int) string {
	return fmt.Sprintf("%s(%d)", StateExited, code)
}
