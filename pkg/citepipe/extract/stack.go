package extract

import (
	"fmt"

	"github.com/cognicore/citepipe/pkg/citepipe/internalerr"
)

// tag is one open element together with its skip flag. Content under a
// skipped tag is not added to the running counters or the content buffer,
// apart from the abbreviated-citation carve-out.
type tag struct {
	name string
	skip bool
}

// tagStack tracks the open-element context. It must be balanced at the
// end of every document.
type tagStack struct {
	tags []tag
}

func (s *tagStack) push(name string, skip bool) {
	s.tags = append(s.tags, tag{name: name, skip: skip})
}

// pop closes the innermost context. The expected name must equal the name
// that was pushed; a disagreement is a structural error fatal to the file.
func (s *tagStack) pop(expected string) error {
	if len(s.tags) == 0 {
		return fmt.Errorf("%w: </%s> with no open element", internalerr.ErrTagMismatch, expected)
	}
	top := s.tags[len(s.tags)-1]
	if top.name != expected {
		return fmt.Errorf("%w: </%s> closes <%s>", internalerr.ErrTagMismatch, expected, top.name)
	}
	s.tags = s.tags[:len(s.tags)-1]
	return nil
}

// top returns the innermost open tag. Text outside any element is treated
// as skipped.
func (s *tagStack) top() tag {
	if len(s.tags) == 0 {
		return tag{skip: true}
	}
	return s.tags[len(s.tags)-1]
}

func (s *tagStack) depth() int { return len(s.tags) }
