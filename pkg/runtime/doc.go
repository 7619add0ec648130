// Package runtime wires the Data Info Provider, Task Analyser, and
// Scheduler into one dispatcher. Task Analyser and ready-queue mutations
// happen on the dispatcher's own goroutine. The DIP is also called
// directly (for example by the API layer's OpenFile) under its own lock,
// and the scheduler's failure monitor marks stale workers unreachable
// under the scheduler mutex before posting events to the dispatcher.
package runtime
