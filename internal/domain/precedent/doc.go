// Package precedent models prior court decisions returned by similarity
// search and the policy that chooses which one anchors an advisory answer.
package precedent
