package di

import "context"

type exitEntry struct {
	key   Key
	sync  Finalizer
	async AsyncFinalizer
}

// exitStack holds the finalizers of one container in construction order.
type exitStack struct {
	entries []exitEntry
}

func (s *exitStack) push(e exitEntry) { s.entries = append(s.entries, e) }

func (s *exitStack) len() int { return len(s.entries) }

// close runs every finalizer newest first and empties the stack. A failing
// finalizer does not stop the others; failures come back as one ExitError.
func (s *exitStack) close(ctx context.Context, cause error, onFailure func(Key, error)) error {
	entries := s.entries
	s.entries = nil

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		var err error
		switch {
		case e.async != nil:
			err = e.async(ctx, cause)
		case e.sync != nil:
			err = e.sync(cause)
		}
		if err != nil {
			err = FactoryError{Key: e.key, Cause: err}
			if onFailure != nil {
				onFailure(e.key, err)
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return ExitError{Errors: errs}
	}
	return nil
}
