package ai

import "context"

// run drives one reply: Idle -> Streaming -> Completed, or back to Idle after a
// transient failure while attempts remain, or Failed.
func (s *Service) run(ctx context.Context, req Request, ch chan<- Event) error {
	name := s.provider.Name()
	maxAttempts := s.cfg.MaxAttempts

	for attempt := 1; ; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		forwarded := 0
		err := s.provider.Generate(ctx, req, func(fragment string) error {
			if fragment == "" {
				return nil
			}
			forwarded++
			return send(ctx, ch, Event{Type: EventDelta, Text: fragment, Attempt: attempt})
		})
		if err == nil {
			logf("reply complete provider=%s model=%s attempts=%d fragments=%d", name, req.Model, attempt, forwarded)
			return send(ctx, ch, Event{Type: EventDone, Attempt: attempt})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		transient := IsTransient(err)
		if !transient || attempt >= maxAttempts {
			logf("giving up provider=%s attempt=%d/%d transient=%v: %v", name, attempt, maxAttempts, transient, err)
			return &UpstreamError{Provider: name, Attempts: attempt, Transient: transient, Err: err}
		}

		logf("transient failure provider=%s attempt=%d/%d, retrying in %s: %v", name, attempt, maxAttempts, s.cfg.RetryDelay, err)
		if forwarded > 0 {
			if err := send(ctx, ch, Event{Type: EventReset, Attempt: attempt}); err != nil {
				return err
			}
		}
		if err := send(ctx, ch, Event{Type: EventRetry, Attempt: attempt + 1, Delay: s.cfg.RetryDelay}); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
			return err
		}
	}
}
