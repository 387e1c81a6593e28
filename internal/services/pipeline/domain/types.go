// Package domain holds the annotation pipeline types and ports
package domain

import (
	"context"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/tokenize"
	semdomain "cancioneiro/internal/services/semantic/domain"
)

// Word is one annotated token plus its semantic domain when it was eligible
type Word struct {
	annotation.AnnotatedToken
	Domain *semdomain.Classification `json:"domain,omitempty"`
}

// Stats counts where the annotations of one run came from
type Stats struct {
	Tokens     int `json:"tokens"`
	Cached     int `json:"cached"`
	Rule       int `json:"rule"`
	External   int `json:"external"`
	Unresolved int `json:"unresolved"`
	Classified int `json:"classified"`
	Fallback   int `json:"fallback"`
}

// Fresh is the number of tokens produced by a layer rather than served from cache
func (s Stats) Fresh() int { return s.Tokens - s.Cached }

// Add accumulates o into s
func (s *Stats) Add(o Stats) {
	s.Tokens += o.Tokens
	s.Cached += o.Cached
	s.Rule += o.Rule
	s.External += o.External
	s.Unresolved += o.Unresolved
	s.Classified += o.Classified
	s.Fallback += o.Fallback
}

// Segment is a run of tokens annotated together with others in one batch.
// Tokens outside [From, To) only serve as context
type Segment struct {
	Tokens   []tokenize.Token
	From, To int
	// Text is the normalized text the tokens were split from
	Text string
}

// Result is the output of one pipeline run
type Result struct {
	Words []Word `json:"words"`
	Stats Stats  `json:"stats"`
}

// AnnotateInput is the body of the ad hoc annotate endpoint
type AnnotateInput struct {
	Text string `json:"text" validate:"required,min=1,max=20000" example:"Eu fui embora de repente"`
	// Classify disables Layer 3 when false
	Classify *bool `json:"classify,omitempty" example:"true"`
}

// Ports is what other modules consume
type Ports interface {
	// Annotate tokenizes text and runs every layer
	Annotate(ctx context.Context, text string) (Result, error)
	// AnnotateSegments runs the layers for every segment with one Layer 2 request
	// and one Layer 3 pass for the lot, returning one Result per segment
	AnnotateSegments(ctx context.Context, segs []Segment) ([]Result, error)
	// Tokenize exposes the shared tokenizer
	Tokenize(text string) []tokenize.Token
}

// PurgeInput asks the cache to forget a surface form
type PurgeInput struct {
	Surface string `json:"surface" validate:"required,max=200,word" example:"fui"`
}

// PurgeOutput reports how many cache rows were removed
type PurgeOutput struct {
	Surface string `json:"surface" example:"fui"`
	Removed int64  `json:"removed" example:"3"`
}

// ReprocessInput asks Layer 3 to classify words again, replacing stored results
type ReprocessInput struct {
	Words []string `json:"words" validate:"required,min=1,max=200,dive,required,max=200,word" example:"saudade,sertão"`
}
