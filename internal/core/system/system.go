package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: scenario and script commands
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: particle then enchant sweeps
	PhasePostUpdate              // 3: enchant cleanup, broad-phase rebuild
	PhaseOutput                  // 4: reports
	PhasePersist                 // 5: stats journal
	PhaseCleanup                 // 6: pool repair, destroy queued entities
)

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
