// Package benchmark measures the mailbox service and the snapshot path at
// several mailbox sizes. All benchmarks run on a virtual clock, so timer
// work is deterministic and no goroutine sleeps.
//
//	go test -run=^$ -bench=. -benchmem ./internal/tests/benchmark/
//	go test -run=^$ -bench=Snapshot -count=6 ./internal/tests/benchmark/ > new.txt
//
// Compare runs with benchstat.
package benchmark
