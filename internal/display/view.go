package display

import (
	"github.com/tinytelemetry/dealboard/internal/model"
	"github.com/tinytelemetry/dealboard/internal/notify"
	"github.com/tinytelemetry/dealboard/internal/refresh"
	"github.com/tinytelemetry/dealboard/internal/rotation"
	"github.com/tinytelemetry/dealboard/internal/slidestore"
	"github.com/tinytelemetry/dealboard/internal/snapshot"
)

// View is everything a renderer or the status API needs, captured at once.
type View struct {
	Phase          string               `json:"phase"`
	AccessRequired bool                 `json:"accessRequired"`
	SlideshowID    string               `json:"slideshowId"`
	SlideshowName  string               `json:"slideshowName,omitempty"`
	Active         bool                 `json:"active"`
	Loaded         bool                 `json:"loaded"`
	LoadError      string               `json:"loadError,omitempty"`
	State          string               `json:"state"`
	Rotation       rotation.Snapshot    `json:"rotation"`
	Slide          *model.Slide         `json:"slide,omitempty"`
	Data           *model.SlideData     `json:"data,omitempty"`
	Loading        bool                 `json:"loading"`
	SlideError     *slidestore.Failure  `json:"slideError,omitempty"`
	Notification   *notify.View         `json:"notification,omitempty"`
	Refresh        refresh.Status       `json:"refresh"`
	LastPass       PassInfo             `json:"lastPass"`
	DealsToday     snapshot.DealSummary `json:"dealsToday"`
}

// Snapshot captures the current view.
func (d *Display) Snapshot() View {
	d.mu.Lock()
	v := View{
		Phase:          d.phase.String(),
		AccessRequired: d.AccessRequired(),
		SlideshowID:    d.opts.SlideshowID,
		LoadError:      d.loadErr,
		LastPass:       d.lastPass,
		DealsToday:     d.dealsToday,
		State:          rotation.Empty.String(),
	}
	ss, store, rot, refresher, slot := d.slideshow, d.store, d.rot, d.refresher, d.slot
	mounted := d.phase == Mounted
	d.mu.Unlock()

	if !mounted {
		return v
	}
	if ss != nil {
		v.Loaded = true
		v.SlideshowName = ss.Name
		v.Active = ss.Active
	}
	v.Refresh = refresher.Status()
	v.Rotation = rot.Snapshot()
	v.State = v.Rotation.State.String()
	if nv, ok := slot.Current(); ok {
		v.Notification = &nv
	}

	if ss == nil || v.Rotation.State != rotation.Playing || v.Rotation.Index >= len(ss.Slides) {
		return v
	}
	slide := ss.Slides[v.Rotation.Index]
	v.Slide = &slide
	if data, ok := store.Get(slide.Key()); ok {
		v.Data = data
	}
	v.Loading = store.Loading(slide.Key())
	if f, ok := store.LastError(slide.Key()); ok {
		v.SlideError = &f
	}
	return v
}
