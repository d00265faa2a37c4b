package versioning

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicDependency is matched by every CyclicDependencyError.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CyclicDependencyError reports a same-type dependency cycle. Versions of the
// affected definition (within its study, when scoped) are not computed.
type CyclicDependencyError struct {
	DefinitionID string
	StudyID      string
	Cycle        []string
}

func (e *CyclicDependencyError) Error() string {
	scope := e.DefinitionID
	if e.StudyID != "" {
		scope += " in study " + e.StudyID
	}
	path := strings.Join(append(append([]string(nil), e.Cycle...), e.Cycle[0]), " -> ")
	return fmt.Sprintf("cyclic dependency among %s: %s", scope, path)
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }
