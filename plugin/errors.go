package plugin

import "fmt"

// Op is the host operation a PluginError happened in.
type Op string

const (
	OpLoad     Op = "load"
	OpSetup    Op = "setup"
	OpTeardown Op = "teardown"
	OpHandler  Op = "handler"
)

// PluginError is the failure of a single unit. It never affects other units.
type PluginError struct {
	ID  string
	Op  Op
	Err error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}
