package isolation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type request struct {
	msg   Message
	reply chan Reply
}

type runtimeFactory func(Config) (*runtime, error)

// isolatedContext is the worker goroutine serving one tab
type isolatedContext struct {
	tabID   string
	config  Config
	factory runtimeFactory
	log     *zap.Logger
	created time.Time

	inbox     chan request
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func startContext(tabID string, rt *runtime, config Config, factory runtimeFactory, log *zap.Logger) *isolatedContext {
	queue := config.QueueSize
	if queue <= 0 {
		queue = 1
	}
	c := &isolatedContext{
		tabID:   tabID,
		config:  config,
		factory: factory,
		log:     log.With(zap.String("tab_id", tabID)),
		created: time.Now(),
		inbox:   make(chan request, queue),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go c.run(rt)
	return c
}

func (c *isolatedContext) run(rt *runtime) {
	defer close(c.exited)
	defer c.dispose()

	for {
		select {
		case <-c.done:
			return
		case req := <-c.inbox:
			select {
			case <-c.done:
				return
			default:
			}

			reply, panicked := c.handle(rt, req.msg)
			req.reply <- reply

			if panicked {
				fresh, err := c.factory(c.config)
				if err != nil {
					c.log.Error("Failed to rebuild isolated runtime", zap.Error(err))
					return
				}
				rt = fresh
			}
		}
	}
}

func (c *isolatedContext) handle(rt *runtime, msg Message) (reply Reply, panicked bool) {
	start := time.Now()
	reply = Reply{ID: msg.ID, Kind: msg.Kind}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Isolated worker panic",
				zap.String("message_id", msg.ID.String()),
				zap.Stringer("kind", msg.Kind),
				zap.Any("panic", r))
			reply = Reply{ID: msg.ID, Kind: msg.Kind, Err: fmt.Sprintf("panic: %v", r)}
			panicked = true
		}
		reply.Duration = time.Since(start)
	}()

	switch msg.Kind {
	case KindExecuteScript:
		val, console, err := rt.execute(msg.Payload, c.config.Timeout, c.done)
		reply.Console = console
		if err != nil {
			reply.Err = err.Error()
			reply.Timeout = errors.Is(err, ErrTimeout)
			return reply, false
		}
		reply.Value = val
	case KindProcessHTML:
		if msg.Strict {
			reply.HTML = SanitizeStrict(msg.Payload)
		} else {
			reply.HTML = Sanitize(msg.Payload)
		}
	default:
		reply.Err = ErrUnknownMessage.Error()
	}
	return reply, false
}

// send delivers msg and waits for its reply. Replies arriving after the
// context was disposed are discarded.
func (c *isolatedContext) send(ctx context.Context, msg Message) (Reply, error) {
	req := request{msg: msg, reply: make(chan Reply, 1)}

	select {
	case <-c.done:
		return Reply{}, ErrContextDisposed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case c.inbox <- req:
	}

	// queued work ahead of this message may consume its own timeout
	timer := time.NewTimer(2 * c.config.Timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return Reply{}, ErrContextDisposed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-timer.C:
		return Reply{}, ErrTimeout
	case reply := <-req.reply:
		select {
		case <-c.done:
			return Reply{}, ErrContextDisposed
		default:
		}
		return reply, nil
	}
}

func (c *isolatedContext) dispose() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *isolatedContext) wait(timeout time.Duration) bool {
	select {
	case <-c.exited:
		return true
	case <-time.After(timeout):
		return false
	}
}
