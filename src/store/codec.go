package store

import (
	"bytes"

	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/ugorji/go/codec"
)

// storedEvent is the persisted form of an Event: the body plus the local
// fields that are worth keeping across restarts.
type storedEvent struct {
	Body         hashgraph.EventBody
	TimeReceived int64
	SenderID     peers.NodeID
}

func newStoredEvent(e *hashgraph.Event) storedEvent {
	var received int64
	if !e.TimeReceived().IsZero() {
		received = e.TimeReceived().UnixNano()
	}
	return storedEvent{
		Body:         e.Body,
		TimeReceived: received,
		SenderID:     e.SenderID(),
	}
}

func (se storedEvent) event() *hashgraph.Event {
	e := &hashgraph.Event{Body: se.Body}
	e.SetOrigin(hashgraph.OriginStorage)
	e.SetSenderID(se.SenderID)
	if se.TimeReceived != 0 {
		e.SetTimeReceived(timeFromNanos(se.TimeReceived))
	}
	return e
}

func encodeEvent(e *hashgraph.Event) ([]byte, error) {
	var b bytes.Buffer
	enc := codec.NewEncoder(&b, &codec.MsgpackHandle{})
	if err := enc.Encode(newStoredEvent(e)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeEvent(data []byte) (*hashgraph.Event, error) {
	var se storedEvent
	dec := codec.NewDecoder(bytes.NewReader(data), &codec.MsgpackHandle{})
	if err := dec.Decode(&se); err != nil {
		return nil, err
	}
	return se.event(), nil
}
