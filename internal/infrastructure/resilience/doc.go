/*
Package resilience provides the circuit breaker that guards each remote
collaborator: the backend webhook, object storage and the automation
engine.

# Usage

	breaker := resilience.New("backend", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return post(ctx, payload)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// collaborator is down, skip without a network round trip
	}

A caller cancelling its own context is not counted against the remote
side unless Settings.IsFailure says otherwise.

# States

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests ok]--> Closed
	                                                  |
	                                              [failure]
	                                                  v
	                                                 Open
*/
package resilience
