package host

import (
	"go.uber.org/zap"
)

// watches tracks scene operation results nobody waits on, so failures
// still reach the log.
type watches struct {
	log  *zap.Logger
	list []watch
}

type watch struct {
	what string
	ch   <-chan error
}

func (w *watches) add(what string, ch <-chan error) {
	w.list = append(w.list, watch{what: what, ch: ch})
}

// poll logs every finished result without blocking.
func (w *watches) poll() {
	kept := w.list[:0]
	for _, x := range w.list {
		select {
		case err := <-x.ch:
			if err != nil {
				w.log.Error("scene operation failed", zap.String("object", x.what), zap.Error(err))
			}
		default:
			kept = append(kept, x)
		}
	}
	clear(w.list[len(kept):])
	w.list = kept
}

func (w *watches) Len() int { return len(w.list) }
