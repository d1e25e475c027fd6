package api

import (
	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/directory"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Assignment assignment.System
	Directory  directory.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	assignmentSystem := assignment.New(
		runtime.Kontent,
		runtime.Assignment,
		runtime.BatchTimeout,
		runtime.Logger,
	)

	directorySystem := directory.New(
		runtime.Kontent,
		runtime.Workflow,
		runtime.Steps,
		runtime.Pagination,
		runtime.Logger,
	)

	return &Domain{
		Assignment: assignmentSystem,
		Directory:  directorySystem,
	}
}
