/*
Package monitor periodically re-scans every known browsing context.

Each sweep pulls renderer signals for a context, runs the cryptojacking,
exfiltration and network anomaly heuristics, records any new findings and
recomputes the context's threat score. A heuristic reports once when it
starts firing for a context and again only after it has cleared.

A failure or panic while scanning one context is logged and the sweep
moves on to the next. Sweeps and on-demand calls serialize through the
event log's lock.
*/
package monitor
