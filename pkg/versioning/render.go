package versioning

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
)

// Template errors. Render absorbs them; RenderTemplate returns them.
var (
	ErrUnknownTag   = errors.New("unknown template tag")
	ErrMissingValue = errors.New("template value not available")
	ErrUnversioned  = errors.New("node has no version")
)

const (
	tagStart = "${"
	tagEnd   = "}"
)

// RenderContext is everything a label template may reference.
type RenderContext struct {
	Node      provenance.Node
	Version   int
	Versioned bool
	Study     *provenance.Study
	Info      func(key string) (string, bool)
}

// Renderer turns label templates into strings. Templates substitute
// ${version}, ${study.id}, ${study.source}, ${study.signalingPathway},
// ${node.id}, ${node.definitionId}, ${node.studyId} and ${node.info.<Key>}.
// A tag ending in "?" renders empty when its value is unavailable.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render returns the node's label: its explicit label, else the definition's
// template, else the definition's static label, else the definition id and
// version. It never fails.
func (r *Renderer) Render(def *catalog.Definition, rc RenderContext) string {
	if rc.Node.Label != "" {
		return rc.Node.Label
	}
	if def != nil && def.LabelFormatString != "" {
		if s, err := r.RenderTemplate(def.LabelFormatString, rc); err == nil {
			return s
		}
	}
	if def != nil && def.Label != "" {
		return def.Label
	}
	return defaultLabel(rc)
}

func defaultLabel(rc RenderContext) string {
	base := rc.Node.DefinitionID
	if base == "" {
		base = rc.Node.ID
	}
	if !rc.Versioned {
		return base
	}
	return base + " " + strconv.Itoa(rc.Version)
}

// RenderTemplate substitutes the tags of tmpl.
func (r *Renderer) RenderTemplate(tmpl string, rc RenderContext) (string, error) {
	return fasttemplate.ExecuteFuncStringWithErr(tmpl, tagStart, tagEnd, func(w io.Writer, tag string) (int, error) {
		tag = strings.TrimSpace(tag)
		optional := strings.HasSuffix(tag, "?")
		name := strings.TrimSpace(strings.TrimSuffix(tag, "?"))

		value, err := lookup(name, rc)
		if err != nil {
			if optional && !errors.Is(err, ErrUnknownTag) {
				return 0, nil
			}
			return 0, err
		}
		return w.Write([]byte(value))
	})
}

func lookup(name string, rc RenderContext) (string, error) {
	missing := func() (string, error) { return "", fmt.Errorf("%w: %s", ErrMissingValue, name) }
	nonEmpty := func(s string) (string, error) {
		if s == "" {
			return missing()
		}
		return s, nil
	}

	switch name {
	case "version":
		if !rc.Versioned {
			return "", fmt.Errorf("%w: %s", ErrUnversioned, rc.Node.ID)
		}
		return strconv.Itoa(rc.Version), nil
	case "node.id":
		return nonEmpty(rc.Node.ID)
	case "node.definitionId":
		return nonEmpty(rc.Node.DefinitionID)
	case "node.studyId":
		return nonEmpty(rc.Node.StudyID)
	case "study.id", "study.source", "study.signalingPathway":
		if rc.Study == nil {
			return missing()
		}
		switch name {
		case "study.id":
			return nonEmpty(rc.Study.ID)
		case "study.source":
			return nonEmpty(rc.Study.Source)
		default:
			return nonEmpty(rc.Study.SignalingPathway)
		}
	}

	if key, ok := strings.CutPrefix(name, "node.info."); ok && key != "" {
		if rc.Info == nil {
			return missing()
		}
		v, found := rc.Info(key)
		if !found {
			return missing()
		}
		return nonEmpty(v)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTag, name)
}
