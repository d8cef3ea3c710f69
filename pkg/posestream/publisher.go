package posestream

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/localize"
)

const redialDelay = time.Second

// Publisher pushes updates from the robot to the hub.  Publish never
// blocks: updates land in a capacity-1 slot that newer updates replace, and
// a background goroutine owns the websocket, re-dialling whenever the
// connection drops.  The estimation loop never waits on the network.
type Publisher struct {
	url  string
	log  *zap.SugaredLogger
	slot chan Update
}

func NewPublisher(url string, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		url:  url,
		log:  log,
		slot: make(chan Update, 1),
	}
}

// Send adapts the publisher to the estimation loop's sink.
func (p *Publisher) Send(e localize.Estimate) {
	p.Publish(FromEstimate(e))
}

func (p *Publisher) Publish(u Update) {
	select {
	case p.slot <- u:
	default:
		select {
		case <-p.slot:
		default:
		}
		select {
		case p.slot <- u:
		default:
		}
	}
}

// Start launches the sender goroutine; it runs until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	go p.loop(ctx)
}

func (p *Publisher) loop(ctx context.Context) {
	for ctx.Err() == nil {
		if err := p.dialAndSend(ctx); err != nil && ctx.Err() == nil {
			p.log.Infow("hub connection lost; will retry", "url", p.url, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

func (p *Publisher) dialAndSend(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	p.log.Infow("connected to hub", "url", p.url)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-p.slot:
			if err := conn.WriteJSON(u); err != nil {
				return err
			}
		}
	}
}
