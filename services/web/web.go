//go:build !rp2040 && !rp2350

// services/web/web.go
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"anglectl-go/bus"
	"anglectl-go/types"
)

const requestTimeout = 2 * time.Second

// Client bridges HTTP handlers onto the message bus: control requests
// go out as bus requests, status is served from the retained document.
type Client struct {
	conn *bus.Connection

	mu     sync.Mutex
	status types.MotionStatus
	has    bool
}

// NewClient subscribes to the retained motion status and keeps a local
// copy current until ctx is cancelled.
func NewClient(ctx context.Context, conn *bus.Connection) *Client {
	c := &Client{conn: conn}
	sub := conn.Subscribe(bus.T("status", "motion"))
	go func() {
		defer conn.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.Channel():
				if st, ok := msg.Payload.(types.MotionStatus); ok {
					c.mu.Lock()
					c.status = st
					c.has = true
					c.mu.Unlock()
				}
			}
		}
	}()
	return c
}

// Router builds the API router.
func Router(c *Client) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", c.getStatus)
		r.Post("/set", c.postSet)
		r.Post("/stop", c.postStop)
	})

	return r
}

//---
// Views
//---

func (c *Client) getStatus(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	st, has := c.status, c.has
	c.mu.Unlock()
	if !has {
		render.Render(w, r, ErrNotFound)
		return
	}
	render.JSON(w, r, st)
}

// SetPayload carries target angles in degrees.
type SetPayload struct {
	Angles []float64 `json:"angles"`
}

func (p *SetPayload) Bind(r *http.Request) error {
	if len(p.Angles) == 0 {
		return errors.New("angles must be non-empty")
	}
	return nil
}

func (c *Client) postSet(w http.ResponseWriter, r *http.Request) {
	data := &SetPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	targets := make([]int32, len(data.Angles))
	for i, a := range data.Angles {
		targets[i] = degreesToHalfSteps(a)
	}
	c.forward(w, r, bus.T("motion", "sequence", "set"),
		types.SequenceRequest{Targets: targets})
}

func (c *Client) postStop(w http.ResponseWriter, r *http.Request) {
	c.forward(w, r, bus.T("motion", "sequence", "stop"), nil)
}

func (c *Client) forward(w http.ResponseWriter, r *http.Request, topic bus.Topic, payload any) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := c.conn.RequestWait(ctx, c.conn.NewMessage(topic, payload, false))
	if err != nil {
		render.Render(w, r, ErrServiceUnavailable(err))
		return
	}
	rep, ok := msg.Payload.(types.CommandReply)
	if !ok {
		render.Render(w, r, ErrRender(errors.New("unexpected reply payload")))
		return
	}
	if !rep.OK {
		render.Render(w, r, ErrInvalidRequest(errors.New(rep.Err)))
		return
	}
	render.JSON(w, r, rep)
}

// 0.5° per half-step, pinned to one full turn.
func degreesToHalfSteps(deg float64) int32 {
	if deg < 0 {
		deg = 0
	}
	if deg > 360 {
		deg = 360
	}
	return int32(deg*2 + 0.5)
}
