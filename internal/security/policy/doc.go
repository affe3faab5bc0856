// Package policy owns per-tab sandbox policies and Content-Security-Policy synthesis.
//
// Precedence for a tab's effective policy: an explicit override set with
// Store.Set, then the policy derived from the page's domain, then the
// global default level.
package policy
