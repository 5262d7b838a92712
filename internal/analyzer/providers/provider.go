// Package providers adapts generative text backends to a common completion shape.
package providers

import "strings"

// Completion is what a backend produced for one prompt. A completion with no
// parts is either a refusal (BlockReason set) or an empty reply.
type Completion struct {
	Parts       []string
	BlockReason string
}

// Text joins the parts without separators
func (c Completion) Text() string {
	return strings.Join(c.Parts, "")
}
