package env

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a requested plugin name is absent from
// the registry. It carries the list of known names.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %s not found; known plugins are: %s", e.Name, strings.Join(e.Known, ","))
}

// RelationExistsError is returned when save mode is "error_if_exists"
// and the target relation is already present.
type RelationExistsError struct {
	Relation string
}

func (e *RelationExistsError) Error() string {
	return fmt.Sprintf("source %s already exists!", e.Relation)
}

// LoadError is returned when a plugin's load step produced no dataframe.
type LoadError struct {
	Plugin string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %s load returned no dataframe", e.Plugin)
}

// RuntimeError is the normalized form of an engine execution failure.
// The original message is preserved verbatim.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return e.Msg
}
