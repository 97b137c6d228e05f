/*
Package resilience provides the circuit breaker guarding outbound calls to the
blob service and the code-generation API.

	breaker := resilience.New("codegen", resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})

	text, err := resilience.Do(breaker, func() (string, error) {
		return callUpstream(ctx)
	})

State changes:

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests successes]--> Closed
	                                                  |
	                                              [failure]
	                                                  v
	                                                 Open
*/
package resilience
