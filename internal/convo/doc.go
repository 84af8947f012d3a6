// Package convo provides the business boundary for the voice companion.
// It defines the Engine (per-turn orchestration and call state machine),
// the Policy (scope and farewell classification plus prompt construction),
// the Store interface (call session persistence), and domain models.
package convo
