// Package conversation sequences a chat session: user query, match or
// fallback, simulated typing delay, appended reply.
//
// Invariants:
// - At most one reply is outstanding; Send while one is pending returns ErrReplyPending.
// - Every user message gets exactly one bot reply unless a Clear intervenes.
// - Every mutation writes the full affected state through the Store while
//   holding the session lock, so writes never interleave.
// - Persistence failures never roll back in-memory state; they are logged
//   and reported to OnWarning wrapped in ErrPersist.
// - Hooks run after the session lock is released.
package conversation
