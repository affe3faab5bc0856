/*
Package threat defines the closed vocabularies shared by the security engine.

# Overview

Every kind the engine reasons about is a small integer-backed enum with a fixed
declaration order:

  - Level: none < low < medium < high < critical
  - EventType: the ten security event kinds
  - Category: the keys of the per-context threat multiset
  - SandboxLevel: none, basic, strict, maximum

Levels are compared by rank, never by equality alone:

	if level.AtLeast(threat.High) {
		// block
	}

Adding a kind means adding a constant and extending the exhaustive switches in
this package; consumers switch on the constants rather than on strings.
*/
package threat
