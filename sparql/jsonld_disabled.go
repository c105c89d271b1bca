//go:build nojsonld

package sparql

const jsonLDAvailable = false
