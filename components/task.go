package components

// TaskMode controls whether a component may (or must) run as a background
// task under an external task engine.
type TaskMode string

const (
	// TaskForbidden components run only in the request path. This is the
	// default for components with no task config.
	TaskForbidden TaskMode = "forbidden"
	// TaskAllowed components may run either inline or as a task.
	TaskAllowed TaskMode = "allowed"
	// TaskRequired components must run as a task.
	TaskRequired TaskMode = "required"
)

// TaskConfig is the per-component task declaration.
type TaskConfig struct {
	Mode TaskMode
}

// SupportsTasks reports whether the component is eligible for task
// execution. A nil config means forbidden.
func (c *TaskConfig) SupportsTasks() bool {
	return c != nil && (c.Mode == TaskAllowed || c.Mode == TaskRequired)
}
