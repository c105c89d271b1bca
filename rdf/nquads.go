package rdf

import (
	"bytes"
	"fmt"

	"github.com/knakk/rdf"
	"github.com/knakk/sparql"
)

// SolutionsToNQuads converts SPARQL JSON results binding ?s ?p ?o (and optionally ?g)
// into N-Quads. Rows without ?g are placed in defaultGraph, which must then be set.
// It returns the encoded N-Quads bytes or an error.
func SolutionsToNQuads(bindings []byte, defaultGraph string) ([]byte, error) {
	res, err := sparql.ParseJSON(bytes.NewReader(bindings))
	if err != nil {
		return nil, err
	}
	var fallback rdf.Context
	if defaultGraph != "" {
		iri, err := rdf.NewIRI(defaultGraph)
		if err != nil {
			return nil, fmt.Errorf("invalid default graph %q: %w", defaultGraph, err)
		}
		fallback = iri
	}

	var result bytes.Buffer
	enc := rdf.NewQuadEncoder(&result, rdf.NQuads)
	for _, row := range res.Solutions() {
		s, okS := row["s"].(rdf.Subject)
		p, okP := row["p"].(rdf.Predicate)
		o, okO := row["o"].(rdf.Object)
		g, okG := row["g"].(rdf.Context)
		if !okG {
			g, okG = fallback, fallback != nil
		}
		if !okS || !okP || !okO || !okG {
			return nil, fmt.Errorf("invalid quad: %v", row)
		}
		if err := enc.Encode(rdf.Quad{Triple: rdf.Triple{Subj: s, Pred: p, Obj: o}, Ctx: g}); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return result.Bytes(), nil
}
