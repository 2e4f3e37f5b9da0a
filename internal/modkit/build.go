package modkit

import (
	"net/http"

	"commitflow/internal/modkit/httpkit"
	str "commitflow/internal/platform/strings"
)

// Built is the resolved option set
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies opts in order; later options win
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:   str.MustString(c.name, "module name"),
		Prefix: str.MustPrefix(c.prefix),
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:  c.ports,
	}
}

// Mount roots register under the module prefix behind its middleware
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	r.Route(b.Prefix, func(rr httpkit.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		register(rr)
	})
}
