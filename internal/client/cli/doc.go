// Package cli provides dentctl, the command-line client of the document
// store.
//
// Commands:
//   - upload <patient> <file>...  uploads files concurrently; Ctrl-C cancels
//     attempts that have not reached confirmation
//   - list <patient>              lists confirmed documents
//   - orphans list|retry|sweep    inspects and reconciles uploads whose bytes
//     were sent but never confirmed
//   - ping                        checks the store is reachable
//
// Output is a table when stdout is a terminal and JSON lines otherwise.
package cli
