// Package scheduler implements the Scheduler (component D): a priority
// ready queue, a pluggable placement Policy, worker bookkeeping, starvation
// protection, and the timeout/heartbeat failure monitor. It never touches
// the Data Info Provider or the Task Analyser directly — it is driven
// entirely through Submit/Cancel/ReportActionEnd calls made by pkg/runtime's
// single dispatcher goroutine. Its background work runs elsewhere: the
// failure monitor marks stale workers unreachable under the scheduler
// mutex and posts timeout/unreachable events to the dispatcher, and the
// profile-decay cron job prunes the profile table under that table's own
// lock. The starvation ticker lives in the runtime's dispatcher loop.
package scheduler
