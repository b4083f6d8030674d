package queue

// The two background loops run as recurring asynq tasks. Each task is one
// pass; state lives in Postgres, so a dropped task only delays work until
// the next tick.
const (
	TypeDeletionProcess = "deletion:process"
	TypeIndexStatusPoll = "indexstatus:poll"
)
