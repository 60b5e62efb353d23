// Package reconciler keeps the client's booking list consistent with the
// booking service. The list changes only through confirmed outcomes: a
// fetch-all load, a push add, or a push remove. User actions (submit, cancel)
// call the service and leave list updates to those confirmations.
package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/EpicMandM/room-booking/internal/service"
)

// Status summarises the reconciler for health reporting.
type Status struct {
	Loaded    bool
	Loading   bool
	LastError error
	Count     int
}

// Reconciler owns the ordered booking list and the draft.
type Reconciler struct {
	api    service.BookingAPI
	logger *logger.Logger

	mu       sync.Mutex
	bookings []models.Booking
	index    map[string]struct{}
	draft    models.Draft

	loaded   bool
	loading  int
	journal  []models.PushEvent
	loadErr  error
	watchers map[int]chan struct{}
	nextID   int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty reconciler with a default draft.
func New(api service.BookingAPI, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:      api,
		logger:   logger.NewNop(),
		index:    make(map[string]struct{}),
		draft:    models.NewDraft(),
		watchers: make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the full booking set and replaces the local list with it.
// Push events applied while the fetch was in flight are replayed on top of
// the fetched snapshot, so an event is never lost to a stale snapshot.
// On failure the list is left as it was and the error is recorded.
func (r *Reconciler) Load(ctx context.Context) error {
	r.mu.Lock()
	r.loading++
	r.mu.Unlock()

	r.logger.Info("Loading bookings", logger.Action("load"), logger.Status("fetching"))
	fetched, err := r.api.ListBookings(ctx)

	r.mu.Lock()
	r.loading--
	if err != nil {
		r.loadErr = err
		if r.loading == 0 {
			r.journal = nil
		}
		r.mu.Unlock()
		r.logger.Warn("Failed to load bookings", logger.Action("load"), logger.Status("failed"), logger.Error(err))
		r.notify()
		return fmt.Errorf("load bookings: %w", err)
	}

	r.replaceLocked(fetched)
	replayed := len(r.journal)
	for _, ev := range r.journal {
		r.applyLocked(ev)
	}
	if r.loading == 0 {
		r.journal = nil
	}
	r.loaded = true
	r.loadErr = nil
	count := len(r.bookings)
	r.mu.Unlock()

	r.logger.Info("Bookings loaded", logger.Action("load"), logger.Status("loaded"), logger.Count(count), logger.F("REPLAYED", replayed))
	r.notify()
	return nil
}

// RecordLoadError marks the reconciler as failed to load without touching
// the list. Used when a retry policy gives up.
func (r *Reconciler) RecordLoadError(err error) {
	r.mu.Lock()
	r.loadErr = err
	r.mu.Unlock()
	r.notify()
}

// Apply routes a push event to ApplyAdded or ApplyCancelled. Unknown kinds
// are ignored.
func (r *Reconciler) Apply(ev models.PushEvent) bool {
	switch ev.Kind {
	case models.EventBookingAdded:
		return r.ApplyAdded(ev.Booking)
	case models.EventBookingCancelled:
		return r.ApplyCancelled(ev.ID)
	default:
		r.logger.Debug("Ignoring push event", logger.Event(string(ev.Kind)), logger.Reason("unknown_event"))
		return false
	}
}

// ApplyAdded appends b unless a booking with the same id is already present.
// It reports whether the list changed.
func (r *Reconciler) ApplyAdded(b models.Booking) bool {
	return r.applyEvent(models.BookingAdded(b))
}

// ApplyCancelled removes the booking with id. Unknown ids are a no-op.
// It reports whether the list changed.
func (r *Reconciler) ApplyCancelled(id models.BookingID) bool {
	return r.applyEvent(models.BookingCancelled(id))
}

func (r *Reconciler) applyEvent(ev models.PushEvent) bool {
	r.mu.Lock()
	if r.loading > 0 {
		r.journal = append(r.journal, ev)
	}
	changed := r.applyLocked(ev)
	r.mu.Unlock()

	r.logger.Debug("Push event applied",
		logger.Event(string(ev.Kind)),
		logger.BookingID(ev.ID.String()),
		logger.F("CHANGED", changed))
	if changed {
		r.notify()
	}
	return changed
}

func (r *Reconciler) applyLocked(ev models.PushEvent) bool {
	switch ev.Kind {
	case models.EventBookingAdded:
		if _, ok := r.index[ev.Booking.ID.Key()]; ok {
			return false
		}
		r.bookings = append(r.bookings, ev.Booking)
		r.index[ev.Booking.ID.Key()] = struct{}{}
		return true
	case models.EventBookingCancelled:
		if _, ok := r.index[ev.ID.Key()]; !ok {
			return false
		}
		for i, b := range r.bookings {
			if b.ID.Key() == ev.ID.Key() {
				r.bookings = append(r.bookings[:i], r.bookings[i+1:]...)
				break
			}
		}
		delete(r.index, ev.ID.Key())
		return true
	}
	return false
}

// replaceLocked installs a fetched snapshot, keeping the first entry for any
// id the service repeats.
func (r *Reconciler) replaceLocked(fetched []models.Booking) {
	r.bookings = make([]models.Booking, 0, len(fetched))
	r.index = make(map[string]struct{}, len(fetched))
	for _, b := range fetched {
		if _, ok := r.index[b.ID.Key()]; ok {
			continue
		}
		r.bookings = append(r.bookings, b)
		r.index[b.ID.Key()] = struct{}{}
	}
}

// Submit sends the current draft to the booking service. On success the
// draft is reset and the list is reloaded; a failing reload is logged and
// does not fail the submit. On failure the draft and list are unchanged and
// the error carries the service message (see service.UserMessage).
func (r *Reconciler) Submit(ctx context.Context) error {
	draft := r.Draft()

	if err := r.api.CreateBooking(ctx, draft); err != nil {
		r.logger.Warn("Booking submission failed",
			logger.Action("submit"),
			logger.Room(draft.RoomName),
			logger.Reason(service.UserMessage(err, service.FallbackSubmitMessage)),
			logger.Error(err))
		return err
	}

	r.mu.Lock()
	r.draft.Reset()
	r.mu.Unlock()
	r.logger.Info("Booking submitted", logger.Action("submit"), logger.Status("accepted"), logger.Room(draft.RoomName))
	r.notify()

	if err := r.Load(ctx); err != nil {
		r.logger.Warn("Reload after submit failed", logger.Action("submit"), logger.Error(err))
	}
	return nil
}

// Cancel asks the booking service to cancel id, sent in the form the
// service issued it (see Resolve). The list is not touched; the removal
// arrives later as a push event.
func (r *Reconciler) Cancel(ctx context.Context, id models.BookingID) error {
	id = r.Resolve(id)
	if err := r.api.CancelBooking(ctx, id); err != nil {
		r.logger.Warn("Booking cancellation failed",
			logger.Action("cancel"),
			logger.BookingID(id.String()),
			logger.Reason(service.UserMessage(err, service.FallbackCancelMessage)),
			logger.Error(err))
		return err
	}
	r.logger.Info("Cancellation requested", logger.Action("cancel"), logger.Status("accepted"), logger.BookingID(id.String()))
	return nil
}

// Resolve returns the id of the listed booking whose id has the same text
// as id, or id itself when no booking matches. Ids typed by a user carry no
// wire form until resolved.
func (r *Reconciler) Resolve(id models.BookingID) models.BookingID {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID.Key() == id.Key() {
			return b.ID
		}
	}
	return id
}

// Bookings returns a copy of the list in arrival order.
func (r *Reconciler) Bookings() []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}

// Draft returns a copy of the current draft.
func (r *Reconciler) Draft() models.Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// SetDraftField updates one draft field (see models.Draft.Set).
func (r *Reconciler) SetDraftField(field, value string) error {
	r.mu.Lock()
	err := r.draft.Set(field, value)
	r.mu.Unlock()
	if err == nil {
		r.notify()
	}
	return err
}

// Status reports load state and list size.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Loaded:    r.loaded,
		Loading:   r.loading > 0,
		LastError: r.loadErr,
		Count:     len(r.bookings),
	}
}

// Subscribe returns a channel that receives a signal after every change to
// the list, draft or load status. Signals coalesce: a slow reader sees at
// least one signal after the latest change. Call the returned func to
// unsubscribe; it closes the channel.
func (r *Reconciler) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
