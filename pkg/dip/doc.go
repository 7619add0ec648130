// Package dip implements the Data Info Provider: the versioned registry of
// every DID an application has touched. It hands out renamings (DataInstanceID
// values) for read and write accesses, tracks reader counts so a version can
// be retired once its last reader finishes, and arbitrates the commutative
// (M) and concurrent (C) write bags described by the task analyser's access
// model. The provider itself knows nothing about tasks or the DAG; it is
// reached from arbitrary goroutines (user-thread blocking calls as well as
// the single dispatcher goroutine), so all mutating state lives behind one
// mutex.
package dip
