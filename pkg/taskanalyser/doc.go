// Package taskanalyser implements the Task Analyser (component C): it
// turns task submissions into the implicit dependency DAG described by
// their parameter accesses (RAW/WAR/WAW edges derived from the Data Info
// Provider's renamings, never stored as an explicit graph), drives the
// task state machine, and answers barrier and cancellation queries. It
// holds producer/waiter bookkeeping itself rather than attaching it to
// DIP records, so pkg/dip stays ignorant of task semantics entirely.
package taskanalyser
