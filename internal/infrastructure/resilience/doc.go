/*
Package resilience provides a circuit breaker for dependencies that fail in bursts.

The security engine wraps two such dependencies: remote threat-intelligence
feed downloads, and isolated execution context creation. When either keeps
failing the breaker opens and callers fall back immediately (cached feeds,
or the "no isolation available" degraded mode) instead of retrying on every
request.

	breaker := resilience.New("intel-feed", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	doc, err := resilience.Call(breaker, func() (*Document, error) {
		return fetch(ctx)
	})

State machine:

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                                |
	                                            [failure]
	                                                v
	                                              Open
*/
package resilience
