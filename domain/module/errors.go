package module

import (
	"fmt"
	"strings"
)

// MissingDependencyError reports dependencies that are nonexistent,
// undeclared, not installed, or not enabled.
type MissingDependencyError struct {
	Module       string
	Dependencies []string
	Reason       string // "nonexistent", "undeclared", "not installed", "not enabled"
}

// Error returns a message embedding the offending module names and a
// suggested corrective command.
func (e *MissingDependencyError) Error() string {
	deps := strings.Join(e.Dependencies, ", ")
	switch e.Reason {
	case "undeclared":
		return fmt.Sprintf("module %q references modules not declared in its requires list: %s (add them to the module manifest)", e.Module, deps)
	case "not installed":
		return fmt.Sprintf("module %q requires modules that are not installed: %s (run: tooldock mod install %s)", e.Module, deps, firstOf(e.Dependencies))
	case "not enabled":
		return fmt.Sprintf("module %q requires modules that are not enabled: %s (run: tooldock mod enable %s)", e.Module, deps, firstOf(e.Dependencies))
	default:
		return fmt.Sprintf("module %q declares dependencies that do not exist: %s", e.Module, deps)
	}
}

// ProtectedModuleError reports an attempt to disable or uninstall a protected
// module.
type ProtectedModuleError struct {
	Module    string
	Operation string // "disable" or "uninstall"
}

func (e *ProtectedModuleError) Error() string {
	return fmt.Sprintf("module %q is protected and cannot be %sd", e.Module, e.Operation)
}

// ReverseDependencyError reports an attempt to disable or uninstall a module
// that other modules still depend on.
type ReverseDependencyError struct {
	Module     string
	Dependents []string
	Operation  string // "disable" or "uninstall"
}

func (e *ReverseDependencyError) Error() string {
	return fmt.Sprintf("cannot %s module %q: still required by %s (run: tooldock mod %s %s first)",
		e.Operation, e.Module, strings.Join(e.Dependents, ", "), e.Operation, firstOf(e.Dependents))
}

// SeedError reports a seeder failure; fatal during install.
type SeedError struct {
	Module string
	Err    error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("seeding module %q failed: %v", e.Module, e.Err)
}

func (e *SeedError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an operation on an unknown module.
type NotFoundError struct {
	Module string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q not found (run: tooldock mod discover)", e.Module)
}

func firstOf(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
