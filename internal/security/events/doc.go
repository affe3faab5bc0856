// Package events is the process-wide security event log.
//
// Appending an event publishes it to every subscriber and adds its threat
// category to the owning tab's multiset. A tab's threat score is always
// recomputed from that multiset, so repeated recomputation is idempotent.
// Every mutation happens under one lock; a reader never observes a
// multiset that is half updated.
package events
