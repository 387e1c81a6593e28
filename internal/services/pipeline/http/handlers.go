// Package http provides http transport for the annotation pipeline
package http

import (
	stdhttp "net/http"

	"cancioneiro/internal/modkit/httpkit"
	cachedomain "cancioneiro/internal/services/cache/domain"
	"cancioneiro/internal/services/pipeline/domain"
	"cancioneiro/internal/services/pipeline/service"
	semdomain "cancioneiro/internal/services/semantic/domain"
)

// Register mounts the routes
func Register(r httpkit.Router, p *service.Service, cache cachedomain.Ports, sem semdomain.Ports) {
	h := &handlers{pipe: p, cache: cache, sem: sem}
	httpkit.PostJSON[domain.AnnotateInput](r, "/annotate", h.annotate)
	httpkit.PostJSON[domain.PurgeInput](r, "/cache/purge", h.purge)
	httpkit.PostJSON[domain.ReprocessInput](r, "/classify/reprocess", h.reprocess)
}

type handlers struct {
	pipe  *service.Service
	cache cachedomain.Ports
	sem   semdomain.Ports
}

// swagger:route POST /annotate Pipeline annotate
// @Summary Annotate a text through every layer
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.AnnotateInput true "Text"
// @Success 200 {object} domain.Result "ok"
// @Failure 400 {object} httpkit.Envelope "invalid input"
// @Router /annotate [post]
func (h *handlers) annotate(r *stdhttp.Request, in domain.AnnotateInput) (any, error) {
	p := h.pipe
	if in.Classify != nil && !*in.Classify {
		p = p.WithoutSemantic()
	}
	return p.Annotate(r.Context(), in.Text)
}

// swagger:route POST /cache/purge Pipeline purge
// @Summary Drop cached annotations of a surface form
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.PurgeInput true "Surface"
// @Success 200 {object} domain.PurgeOutput "ok"
// @Router /cache/purge [post]
func (h *handlers) purge(r *stdhttp.Request, in domain.PurgeInput) (any, error) {
	n, err := h.cache.Purge(r.Context(), in.Surface)
	if err != nil {
		return nil, err
	}
	return domain.PurgeOutput{Surface: in.Surface, Removed: n}, nil
}

// swagger:route POST /classify/reprocess Pipeline reprocess
// @Summary Classify words again and replace stored results
// @Tags pipeline
// @Accept json
// @Produce json
// @Param payload body domain.ReprocessInput true "Words"
// @Success 200 {array} semdomain.Classification "ok"
// @Router /classify/reprocess [post]
func (h *handlers) reprocess(r *stdhttp.Request, in domain.ReprocessInput) (any, error) {
	items := make([]semdomain.Item, 0, len(in.Words))
	for _, w := range in.Words {
		at, ok := h.cache.Lookup(r.Context(), w, "", "")
		if ok {
			items = append(items, semdomain.ItemOf(at))
			continue
		}
		items = append(items, semdomain.Item{Word: w})
	}
	return h.sem.Reprocess(r.Context(), items)
}
