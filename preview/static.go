package preview

import "github.com/dukes-snr/EazyUi-sub001/editable"

// Static is a fixed-layout resolver for tests and headless deployments that
// skip Chrome entirely.
type Static struct {
	Layouts map[string]Layout
}

// ResolvedStyle returns the computed-style subset for a uid, or nil.
func (s *Static) ResolvedStyle(uid string) map[string]string {
	if l, ok := s.Layouts[uid]; ok {
		return l.Computed
	}
	return nil
}

// BoundingRect returns the rect for a uid.
func (s *Static) BoundingRect(uid string) (editable.Rect, bool) {
	l, ok := s.Layouts[uid]
	return l.Rect, ok
}

var _ editable.StyleResolver = (*Static)(nil)
