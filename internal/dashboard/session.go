package dashboard

import (
	"context"
	"sync"

	"adspend/internal/core"
)

// Session tracks one viewer's search term and month selection and turns UI
// events into fresh views. The filter survives refreshes.
type Session struct {
	ctrl *Controller

	mu    sync.Mutex
	query Query
}

// NewSession starts a session with an empty search and the default month.
func (c *Controller) NewSession() *Session {
	return &Session{ctrl: c}
}

// SessionFor resumes a session whose filter was carried by the client, as
// with a stateless HTTP request.
func (c *Controller) SessionFor(q Query) *Session {
	return &Session{ctrl: c, query: q}
}

// Query returns the current filter selection.
func (s *Session) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// OnSearchChanged stores term and re-renders.
func (s *Session) OnSearchChanged(term string) View {
	s.mu.Lock()
	s.query.Term = term
	q := s.query
	s.mu.Unlock()
	return s.ctrl.View(q)
}

// OnMonthChanged stores the month selection and re-renders.
func (s *Session) OnMonthChanged(k core.MonthKey) View {
	s.mu.Lock()
	s.query.Month = k
	s.query.MonthSet = true
	q := s.query
	s.mu.Unlock()
	return s.ctrl.View(q)
}

// OnRefreshRequested re-fetches, then re-applies the current filter to the
// new rows. The view is returned even when the refresh fails so that the
// last good data stays visible next to the error.
func (s *Session) OnRefreshRequested(ctx context.Context) (View, error) {
	_, err := s.ctrl.Refresh(ctx)
	return s.ctrl.View(s.Query()), err
}
