// Package patterns holds the compiled pattern sets used by threat classification.
//
// A Library is immutable after construction: domain lists, dangerous file
// extensions, known-malware content hashes and the regular expressions for
// URL heuristics, content scanning and input validation. All expressions are
// compiled with RE2 semantics, so matching is linear in the input length and
// safe on attacker-controlled strings of any size.
package patterns
