package surface

import "sync"

// Scope is a held set of suspensions released together with Release.
//
//	scope := gate.SuspendAll()
//	defer scope.Release()
//	...
//	scope.SetMode(surface.PaintAndBlit)
type Scope struct {
	gate    *Sync
	classes []Class
	mode    Mode
	once    sync.Once
}

// Hold suspends classes in order and returns the scope that resumes them.
func (s *Sync) Hold(classes ...Class) *Scope {
	for _, c := range classes {
		s.Suspend(c)
	}
	return &Scope{gate: s, classes: classes, mode: PaintOnly}
}

// SuspendAll suspends tiles and then the screen.
func (s *Sync) SuspendAll() *Scope {
	return s.Hold(Tiles, Screen)
}

// SetMode sets the screen mode used on release. The default is PaintOnly.
func (sc *Scope) SetMode(mode Mode) {
	sc.mode = mode
}

// Release resumes the held classes in the order they were suspended, so
// tiles are refreshed before the screen paints. Tiles always resume with
// PaintOnly; the screen uses the scope mode. Extra calls are no-ops.
func (sc *Scope) Release() {
	sc.once.Do(func() {
		for _, class := range sc.classes {
			mode := sc.mode
			if class == Tiles {
				mode = PaintOnly
			}
			sc.gate.Resume(class, mode)
		}
	})
}
