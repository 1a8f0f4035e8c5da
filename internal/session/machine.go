// Package session drives one Lad Maker session through upload, processing and
// result or error, and back to upload on reset.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/pkg/models"
)

// UnexpectedErrorMessage is shown when the generation worker panics.
const UnexpectedErrorMessage = "unexpected error"

var (
	ErrBusy   = errors.New("an image is already selected; reset first")
	ErrClosed = errors.New("session closed")
)

type Generator interface {
	Generate(ctx context.Context, img models.UploadedImage) models.GenerationResult
}

type Machine struct {
	mu      sync.Mutex
	state   State
	attempt uint64
	cancel  context.CancelFunc
	owned   []models.ImageRef
	subs    map[int]chan State
	nextSub int
	closed  bool

	gen   Generator
	blobs *blob.Store
	log   *zap.SugaredLogger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewMachine returns a machine in the upload state. Original images are kept in
// blobs, which should be the store the generator materializes inline results
// into so reset can release both.
func NewMachine(gen Generator, blobs *blob.Store, log *zap.SugaredLogger) *Machine {
	if blobs == nil {
		blobs = blob.NewStore()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base, stop := context.WithCancel(context.Background())
	return &Machine{
		state: Upload(),
		subs:  make(map[int]chan State),
		gen:   gen,
		blobs: blobs,
		log:   log.Named("session"),
		base:  base,
		stop:  stop,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ImageSelected starts a generation for img. It is only accepted in the upload
// state; anywhere else it returns ErrBusy and leaves the state alone.
func (m *Machine) ImageSelected(img models.UploadedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state.Kind != KindUpload {
		return ErrBusy
	}

	original := m.blobs.Put(img.MIMEType, img.Data)
	m.owned = append(m.owned, original)

	m.attempt++
	token := m.attempt
	ctx, cancel := context.WithCancel(m.base)
	m.cancel = cancel

	m.setLocked(Processing(original))
	m.log.Infow("image selected", "name", img.Name, "type", img.MIMEType, "attempt", token)

	m.wg.Add(1)
	go m.work(ctx, token, img)
	return nil
}

func (m *Machine) work(ctx context.Context, token uint64, img models.UploadedImage) {
	defer m.wg.Done()

	res, ok := m.generate(ctx, img)
	if !ok {
		m.finish(token, models.Failed(UnexpectedErrorMessage))
		return
	}
	m.finish(token, res)
}

func (m *Machine) generate(ctx context.Context, img models.UploadedImage) (res models.GenerationResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("generation panicked", "panic", r)
			ok = false
		}
	}()
	return m.gen.Generate(ctx, img), true
}

func (m *Machine) finish(token uint64, res models.GenerationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.attempt || m.state.Kind != KindProcessing {
		m.log.Debugw("dropping stale completion", "attempt", token, "current", m.attempt)
		if res.OK() {
			m.blobs.Release(res.Ref())
		}
		return
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if !res.OK() {
		m.log.Infow("generation failed", "attempt", token, "reason", res.Reason())
		m.setLocked(Error(res.Reason()))
		return
	}

	if res.Ref().IsBlob() {
		m.owned = append(m.owned, res.Ref())
	}
	m.log.Infow("generation succeeded", "attempt", token, "ref", res.Ref())
	m.setLocked(Result(m.state.Original, res.Ref()))
}

// Reset returns to the upload state from anywhere, cancelling an in-flight
// generation and releasing every blob the session owned. Calling it again is a
// no-op.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.attempt++

	for _, ref := range m.owned {
		m.blobs.Release(ref)
	}
	m.owned = nil

	if m.state.Kind != KindUpload {
		m.log.Infow("session reset", "from", m.state.Kind)
		m.setLocked(Upload())
	}
}

// Subscribe delivers every state change to the returned channel, starting with
// the current state. A slow reader only sees the latest state. The channel is
// closed by the returned cancel func or by Close.
func (m *Machine) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan State, 1)
	ch <- m.state
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Settled blocks until the session is not processing and returns that state.
func (m *Machine) Settled(ctx context.Context) (State, error) {
	updates, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return m.State(), ErrClosed
			}
			if st.Kind != KindProcessing {
				return st, nil
			}
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Wait blocks until no generation worker is running.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// Close resets the session, waits for the worker and closes all subscriptions.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.closed = true
	m.stop()
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.mu.Unlock()
}

func (m *Machine) setLocked(s State) {
	m.state = s
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Shutdown is Close for containers that manage service lifetimes.
func (m *Machine) Shutdown() error {
	m.Close()
	return nil
}
