// Package registry publishes zpk archives to OCI registries and resolves
// them back to downloadable locations.
//
// A package is stored as an OCI 1.1 artifact: an empty config, a single
// layer holding the archive bytes, and annotations naming the package
// specifier. Tags are package versions, so one repository holds every
// version of one package.
//
// Resolved locations are plain HTTP URLs plus headers, which the fetch
// package downloads concurrently without going through ORAS.
package registry
