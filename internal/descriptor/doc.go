// Package descriptor loads agent cards: the static metadata declaring an
// agent's identity and the skill ids it serves.
package descriptor
