/*
Package classifier turns URLs, downloads and page content into threat findings.

Every exported operation is a pure function of its input and the injected
intelligence source, so a Classifier can be shared across goroutines without
locking. Malformed input never produces an error: it resolves to the most
conservative non-blocking answer (threat.Low for URLs).

# URL classification

Checks run in order and the first hit wins:

 1. malicious domain set      -> critical
 2. phishing domain set       -> high
 3. domain shape heuristics   -> medium
 4. phishing lure in the URL  -> medium

# Deep scan

Four independent categories each add a fixed weight to the risk score:

	script        0.30
	forms         0.20
	exfiltration  0.40
	mining        0.25

The score is the plain sum and is not clamped, so a page hitting every
category scores 1.15.
*/
package classifier
