package core

import "errors"

// FanoutCloser propagates close call to the underlying closers.
//
// Remarks:
//   - Closers are closed in the reverse order of registration.
type FanoutCloser struct {
	closers []node
}

// Add closer with id to be notified when the close event is happened.
func (c *FanoutCloser) Add(id string, closer Closer) {
	c.closers = append(c.closers, node{id: id, c: closer})
}

// Close all, the returned error joins every failure.
func (c *FanoutCloser) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		node := c.closers[i]

		if err := node.c.Close(); err != nil {
			LogErr.Errorf("fanout-closer: failed to close: id=%s err=%v", node.id, err)

			errs = append(errs, err)
		}
	}

	c.closers = nil

	return errors.Join(errs...)
}

type node struct {
	id string
	c  Closer
}
