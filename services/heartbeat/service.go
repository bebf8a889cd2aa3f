package heartbeat

import (
	"context"
	"time"

	"anglectl-go/bus"
	"anglectl-go/types"
	"anglectl-go/x/strconvx"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicMotionStatus    = bus.T("status", "motion")
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	stSub := conn.Subscribe(topicMotionStatus)
	defer conn.Unsubscribe(stSub)

	var last types.MotionStatus
	haveStatus := false

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			if haveStatus {
				println("Info:", t.Format("15:04:05"), "Heartbeat,",
					string(last.State), "at", strconvx.FormatFloat(float64(last.Angle), 'f', 1, 32), "deg")
			} else {
				println("Info:", t.Format("15:04:05"), "Heartbeat")
			}
		case msg := <-stSub.Channel():
			if st, ok := msg.Payload.(types.MotionStatus); ok {
				last = st
				haveStatus = true
			}
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"]; ok {
					if interval, ok := iv.(float64); ok && interval > 0 {
						tick.Reset(time.Duration(interval) * time.Second)
						println("Info: heartbeat interval set to", interval, "seconds")
					}
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
