package presetLayer

import (
	"errors"
	"sync"

	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// StageError tells which preset (or which sink) a pipeline failure comes from.
type StageError struct {
	Stage string
	Err   error
}

func (se *StageError) Error() string {
	return se.Stage + " failed: " + se.Err.Error()
}

func (se *StageError) Unwrap() error {
	return se.Err
}

func stageFailed(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// WriteFunc writes to one peer. It must be safe to call from both directions at once,
// since a Reply crosses over.
type WriteFunc func(b []byte) error

// Pipeline runs the presets of one connection. Each direction must be driven by a single goroutine;
// the two directions may run concurrently.
type Pipeline struct {
	presets  []Preset
	isClient bool

	toRemote, toLocal WriteFunc

	outEmitters []emitter
	inEmitters  []emitter

	broken   atomic.Error
	failOnce sync.Once

	closeOnce sync.Once
}

type emitter struct {
	p     *Pipeline
	index int
	out   bool
}

func (e *emitter) Next(b []byte) error {
	if e.out {
		return e.p.out(e.index+1, b)
	}
	return e.p.in(e.index-1, b)
}

func (e *emitter) Direct(b []byte) error {
	if e.out {
		return e.p.writeRemote(b)
	}
	return e.p.writeLocal(b)
}

func (e *emitter) Reply(b []byte) error {
	if e.out {
		return e.p.writeLocal(b)
	}
	return e.p.writeRemote(b)
}

// NewPipeline builds a pipeline over already created presets; presets[0] is the closest to the local peer.
// Chain.NewPipeline is the usual way to get one.
func NewPipeline(presets []Preset, isClient bool, toRemote, toLocal WriteFunc) *Pipeline {
	p := &Pipeline{
		presets:  presets,
		isClient: isClient,
		toRemote: toRemote,
		toLocal:  toLocal,
	}
	p.outEmitters = make([]emitter, len(presets))
	p.inEmitters = make([]emitter, len(presets))
	for i := range presets {
		p.outEmitters[i] = emitter{p: p, index: i, out: true}
		p.inEmitters[i] = emitter{p: p, index: i}
	}
	return p
}

func (p *Pipeline) IsClient() bool {
	return p.isClient
}

func (p *Pipeline) writeRemote(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return stageFailed("toRemote", p.toRemote(b))
}

func (p *Pipeline) writeLocal(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return stageFailed("toLocal", p.toLocal(b))
}

func (p *Pipeline) out(i int, b []byte) error {
	if i >= len(p.presets) {
		return p.writeRemote(b)
	}
	pr := p.presets[i]
	e := &p.outEmitters[i]

	if p.isClient {
		if h, ok := pr.(ClientOuter); ok {
			return stageFailed(pr.Name(), h.ClientOut(b, e))
		}
	} else {
		if h, ok := pr.(ServerOuter); ok {
			return stageFailed(pr.Name(), h.ServerOut(b, e))
		}
	}
	return p.out(i+1, b)
}

func (p *Pipeline) in(i int, b []byte) error {
	if i < 0 {
		return p.writeLocal(b)
	}
	pr := p.presets[i]
	e := &p.inEmitters[i]

	if p.isClient {
		if h, ok := pr.(ClientIner); ok {
			return stageFailed(pr.Name(), h.ClientIn(b, e))
		}
	} else {
		if h, ok := pr.(ServerIner); ok {
			return stageFailed(pr.Name(), h.ServerIn(b, e))
		}
	}
	return p.in(i-1, b)
}

// FromLocal pushes bytes read from the local peer through the out direction.
func (p *Pipeline) FromLocal(b []byte) error {
	if err := p.broken.Load(); err != nil {
		return err
	}
	return p.check(p.out(0, b))
}

// FromRemote pushes bytes read from the remote peer through the in direction.
func (p *Pipeline) FromRemote(b []byte) error {
	if err := p.broken.Load(); err != nil {
		return err
	}
	return p.check(p.in(len(p.presets)-1, b))
}

// check marks the pipeline broken on the first failure. After that every call returns the first error.
func (p *Pipeline) check(err error) error {
	if err == nil {
		return nil
	}
	p.failOnce.Do(func() {
		if ce := utils.CanLogDebug("pipeline broken"); ce != nil {
			ce.Write(zap.Bool("client", p.isClient), zap.Error(err))
		}
		p.broken.Store(err)
	})
	return p.broken.Load()
}

// Withholding reports whether some preset still keeps bytes that have to reach the remote peer.
func (p *Pipeline) Withholding() bool {
	for _, pr := range p.presets {
		if w, ok := pr.(Withholder); ok && w.Withholding() {
			return true
		}
	}
	return false
}

// Err returns the error that broke the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.broken.Load()
}

// Close destroys the presets. It should be called after both directions stopped.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		for _, pr := range p.presets {
			if d, ok := pr.(Destroyer); ok {
				d.Destroy()
			}
		}
	})
}
