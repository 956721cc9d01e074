// Package souls keeps the set of live soul connections and fans events out
// to them.
//
// Broadcast works on a copy of the membership, so a failed send can drop
// its connection while the rest of the fan-out continues.
package souls
