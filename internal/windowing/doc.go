// Package windowing trims a projected transcript to an input-token budget.
//
// The transcript is split into groups: maximal runs of consecutive messages
// with the same role. A run maps onto one wire message once providers merge
// adjacent same-role messages, so groups are never split. Groups are included
// newest first while they fit; a window never starts with an assistant group
// unless that group is the only one left.
package windowing
