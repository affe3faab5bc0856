/*
Package isolation runs untrusted script evaluation and HTML sanitization
outside the caller's control flow.

Each browsing context owns at most one isolated context: a goroutine that
exclusively owns a goja runtime and talks to callers only through messages.
Nothing the runtime touches is shared with the caller. A request carries a
correlation id and the worker answers with a Reply; failures inside the
worker, panics included, come back as error replies.

Disposing a context is safe while a message is in flight. The caller gets
ErrContextDisposed and any late reply is dropped.

When a context cannot be created (limit reached or the creation breaker is
open) the manager records the tab as degraded. Sanitization then runs
in-process and script execution is refused with ErrIsolationUnavailable.
*/
package isolation
