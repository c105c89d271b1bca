//go:build !nojsonld

package sparql

// JSON-LD graphs are materialized through rdf2go's JSON-LD parser.
const jsonLDAvailable = true
