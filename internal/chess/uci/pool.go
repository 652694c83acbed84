package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

var ErrBinaryNotFound = errors.New("engine binary not found")

type PoolConfig struct {
	BinaryPath  string
	PerTierSize int
	Logger      *zap.Logger
}

// Pool keeps idle engine processes grouped by their option set so a
// process configured for one tier is never reused for another.
type Pool struct {
	binaryPath  string
	perTierSize int
	logger      *zap.Logger

	mu       sync.Mutex
	buckets  map[string]*sessionBucket
	sessions map[*Session]*sessionBucket
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	path, err := ResolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, err
	}

	capacity := cfg.PerTierSize
	if capacity <= 0 {
		capacity = defaultPerTierSize()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		binaryPath:  path,
		perTierSize: capacity,
		logger:      logger,
		buckets:     make(map[string]*sessionBucket),
		sessions:    make(map[*Session]*sessionBucket),
	}, nil
}

// ResolveBinary accepts either a path or a bare command name looked up in PATH.
func ResolveBinary(binaryPath string) (string, error) {
	if binaryPath == "" {
		return "", fmt.Errorf("%w: path is empty", ErrBinaryNotFound)
	}
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath, nil
	}
	resolved, err := exec.LookPath(binaryPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, binaryPath, err)
	}
	return resolved, nil
}

func (p *Pool) BinaryPath() string { return p.binaryPath }

// Probe starts one engine process with opt, completes the handshake and
// parks it in the pool for the first real search.
func (p *Pool) Probe(ctx context.Context, opt Options) error {
	session, err := p.Acquire(ctx, opt)
	if err != nil {
		return err
	}
	p.Release(session, nil)
	return nil
}

func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	bucket := p.getBucket(opt)

	for {
		select {
		case session := <-bucket.idle:
			if session == nil {
				continue
			}
			if err := session.EnsureReady(ctx); err != nil {
				p.logger.Debug("discarding stale engine session", zap.Error(err))
				bucket.discard(session)
				continue
			}
			p.track(session, bucket)
			return session, nil
		default:
		}

		session, err := bucket.create(ctx, p.logger)
		if err == nil {
			p.track(session, bucket)
			return session, nil
		}
		if !errors.Is(err, errBucketAtCapacity) {
			return nil, err
		}

		select {
		case session := <-bucket.idle:
			if session == nil {
				continue
			}
			if err := session.EnsureReady(ctx); err != nil {
				bucket.discard(session)
				continue
			}
			p.track(session, bucket)
			return session, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a session to its bucket; a non-nil err discards it.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}

	p.mu.Lock()
	bucket, ok := p.sessions[session]
	if ok {
		delete(p.sessions, session)
	}
	p.mu.Unlock()

	if !ok {
		_ = session.Close()
		return
	}
	if err != nil {
		bucket.discard(session)
		return
	}
	if !bucket.put(session) {
		bucket.discard(session)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	buckets := make([]*sessionBucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.sessions = make(map[*Session]*sessionBucket)
	p.mu.Unlock()

	var errs []error
	for _, bucket := range buckets {
		errs = append(errs, bucket.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) track(session *Session, bucket *sessionBucket) {
	p.mu.Lock()
	p.sessions[session] = bucket
	p.mu.Unlock()
}

func (p *Pool) getBucket(opt Options) *sessionBucket {
	key := optionsKey(opt)
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket, ok := p.buckets[key]
	if !ok {
		bucket = newSessionBucket(p.binaryPath, opt, p.perTierSize)
		p.buckets[key] = bucket
	}
	return bucket
}

type sessionBucket struct {
	opt        Options
	capacity   int
	binaryPath string

	mu    sync.Mutex
	total int
	idle  chan *Session
}

var errBucketAtCapacity = errors.New("session bucket at capacity")

func newSessionBucket(binaryPath string, opt Options, capacity int) *sessionBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &sessionBucket{
		opt:        opt,
		capacity:   capacity,
		binaryPath: binaryPath,
		idle:       make(chan *Session, capacity),
	}
}

func (b *sessionBucket) create(ctx context.Context, logger *zap.Logger) (*Session, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketAtCapacity
	}
	b.total++
	b.mu.Unlock()

	session, err := NewSession(ctx, b.binaryPath, b.opt, logger)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return session, nil
}

func (b *sessionBucket) put(session *Session) bool {
	select {
	case b.idle <- session:
		return true
	default:
		return false
	}
}

func (b *sessionBucket) discard(session *Session) {
	if session != nil {
		_ = session.Close()
	}
	b.decrement()
}

func (b *sessionBucket) drain() []error {
	var errs []error
	for {
		select {
		case session := <-b.idle:
			if session == nil {
				continue
			}
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
			b.decrement()
		default:
			return errs
		}
	}
}

func (b *sessionBucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func optionsKey(opt Options) string {
	return fmt.Sprintf("thr=%d|skill=%d|hash=%d|multipv=%d|elo=%d",
		opt.Threads,
		opt.SkillLevel,
		opt.HashMB,
		opt.MultiPV,
		opt.Elo)
}

func defaultPerTierSize() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 1
	}
	if cpu > 2 {
		return 2
	}
	return cpu
}
