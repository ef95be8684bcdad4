package launcher

import "fmt"

// ConfigurationError means a service cannot be attempted at all, typically
// because its working directory is missing. It is never fatal to a run.
type ConfigurationError struct {
	Service string
	Path    string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: working directory %s is not usable: %v", e.Service, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LaunchError means the OS refused to create the service process.
type LaunchError struct {
	Service string
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: failed to start %v: %v", e.Service, e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
