// Package events carries the live pledge feed between server processes.
package events

import (
	"context"

	"github.com/alfredjeanlab/givecal/internal/model"
)

const (
	// TopicPledgePut is published after a pledge record is upserted.
	TopicPledgePut = "pledges.pledge.put"

	// TopicAll matches every pledge event.
	TopicAll = "pledges.>"
)

// PledgePut carries the record as stored, including its server timestamp.
type PledgePut struct {
	Pledge *model.PledgeRecord `json:"pledge"`
}

// Publisher announces events on the feed.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw payloads published on a topic. The returned func
// ends the subscription and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Discard is a Publisher for servers with nobody to announce to.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) error { return nil }
func (Discard) Close() error                                 { return nil }
