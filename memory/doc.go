// Package memory provides the shared conversation log used by agents.
//
// Persistence model:
//   - A session is an append-only, ordered list of Turns attributed to named speakers.
//   - Turns are never edited or deleted; insertion order is the only ordering guarantee.
//   - Project renders the log into the two-role shape expected by inference providers:
//     the viewer's own turns become "assistant", everybody else becomes "user".
//   - Stores are pluggable (in-memory here; jsonl, sqlstore and redisstore subpackages)
//     and must behave identically.
//   - A stored record that cannot be decoded is skipped with a warning on the
//     store's logger; the remaining turns are still returned in order.
//
// No size bound is enforced; callers apply a window (see internal/windowing).
package memory
