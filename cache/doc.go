// Package cache implements a multi-tier cache: an ordered set of layers
// behind a single facade with read-through population, configurable write
// strategies, and a pulse stream for observers.
package cache
