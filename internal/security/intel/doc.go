/*
Package intel supplies threat intelligence to the classifier.

The classifier depends only on the Source interface. The bundled
patterns.Library satisfies it; feed documents extend it:

	name: corp-blocklist
	malicious_domains: [bad.example]
	phishing_domains: [login-bad.example]
	malware_hashes: [275a021b...]

Documents are read from YAML, TOML or JSON files (LoadFile, LoadDir) or
downloaded (Fetcher) and folded into a new immutable library with Build.
Swapping libraries is the only way intelligence changes; lookups never block.
*/
package intel
