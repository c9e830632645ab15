package hashgraph

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/crypto"
	"github.com/mosaicnetworks/eventgate/src/peers"
	"github.com/ugorji/go/codec"
)

// NGen values. An event's NGen is undefined until the OrphanBuffer resolves all
// its parents.
const (
	NGenUndefined int64 = 0
	FirstNGen     int64 = 1
)

// Origin tells where an Event came from.
type Origin int

const (
	// OriginGossip is an Event received from a peer.
	OriginGossip Origin = iota
	// OriginLocal is an Event created by this node.
	OriginLocal
	// OriginStorage is an Event replayed from the local event store.
	OriginStorage
)

// String ...
func (o Origin) String() string {
	switch o {
	case OriginGossip:
		return "Gossip"
	case OriginLocal:
		return "Local"
	case OriginStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

/*******************************************************************************
EventDescriptor
*******************************************************************************/

// EventDescriptor is the identity of an Event: its hash, its creator, and its
// birth round. It is comparable and used as a map key. Two descriptors are
// equal if all their fields are equal.
type EventDescriptor struct {
	Hash       string
	Creator    peers.NodeID
	BirthRound int64
}

// String ...
func (d EventDescriptor) String() string {
	h := d.Hash
	if len(h) > 10 {
		h = h[:10]
	}
	return fmt.Sprintf("(%s, %d, %s)", d.Creator, d.BirthRound, h)
}

// birthRoundOf is the sequence function for maps keyed by descriptor.
func birthRoundOf(d EventDescriptor) int64 {
	return d.BirthRound
}

/*******************************************************************************
EventBody
*******************************************************************************/

// EventBody contains the payload of an Event as well as the information that
// ties it to other Events.
type EventBody struct {
	Creator               peers.NodeID
	BirthRound            int64
	SelfParent            *EventDescriptor //nil for the creator's first event
	OtherParents          []EventDescriptor
	TimeCreated           int64 //unix nanoseconds, strictly increasing per creator
	Transactions          [][]byte
	SignatureTransactions [][]byte
}

func msgpackHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.Canonical = true
	return mh
}

// Marshal returns the canonical msgpack encoding of an EventBody
func (e *EventBody) Marshal() ([]byte, error) {
	var b bytes.Buffer
	enc := codec.NewEncoder(&b, msgpackHandle())
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Unmarshal converts a msgpack encoded EventBody to an EventBody
func (e *EventBody) Unmarshal(data []byte) error {
	dec := codec.NewDecoder(bytes.NewReader(data), msgpackHandle())
	if err := dec.Decode(e); err != nil {
		return err
	}
	return nil
}

// Hash returns the SHA256 hash of the encoded EventBody.
func (e *EventBody) Hash() ([]byte, error) {
	hashBytes, err := e.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

/*******************************************************************************
Event
*******************************************************************************/

// Event is a node of the hashgraph DAG. The body is immutable once the Event
// is created. The private fields are for local computations only and are not
// part of the Event's identity.
type Event struct {
	Body EventBody

	nGen         int64
	timeReceived time.Time
	origin       Origin
	senderID     peers.NodeID

	hash       []byte
	hex        string
	descriptor *EventDescriptor
}

// NewEvent instantiates a new Event
func NewEvent(creator peers.NodeID,
	birthRound int64,
	selfParent *EventDescriptor,
	otherParents []EventDescriptor,
	timeCreated time.Time,
	transactions [][]byte,
	signatureTransactions [][]byte) *Event {

	// Empty slices are stored as nil so that the encoding, and therefore the
	// hash, survives a round-trip.
	if len(otherParents) == 0 {
		otherParents = nil
	}
	if len(transactions) == 0 {
		transactions = nil
	}
	if len(signatureTransactions) == 0 {
		signatureTransactions = nil
	}

	body := EventBody{
		Creator:               creator,
		BirthRound:            birthRound,
		SelfParent:            selfParent,
		OtherParents:          otherParents,
		TimeCreated:           timeCreated.UnixNano(),
		Transactions:          transactions,
		SignatureTransactions: signatureTransactions,
	}
	return &Event{
		Body: body,
	}
}

// Creator returns the ID of the node that created the Event.
func (e *Event) Creator() peers.NodeID {
	return e.Body.Creator
}

// BirthRound returns the round in which the Event was created.
func (e *Event) BirthRound() int64 {
	return e.Body.BirthRound
}

// SelfParent returns the Event's self-parent, or nil.
func (e *Event) SelfParent() *EventDescriptor {
	return e.Body.SelfParent
}

// OtherParents returns the Event's other-parents.
func (e *Event) OtherParents() []EventDescriptor {
	return e.Body.OtherParents
}

// Parents returns all the declared parents, self-parent first.
func (e *Event) Parents() []EventDescriptor {
	res := make([]EventDescriptor, 0, len(e.Body.OtherParents)+1)
	if e.Body.SelfParent != nil {
		res = append(res, *e.Body.SelfParent)
	}
	return append(res, e.Body.OtherParents...)
}

// TimeCreated returns the creator's timestamp.
func (e *Event) TimeCreated() time.Time {
	return time.Unix(0, e.Body.TimeCreated)
}

// Transactions returns the Event's application transactions
func (e *Event) Transactions() [][]byte {
	return e.Body.Transactions
}

// SignatureTransactions returns the Event's state-signature transactions
func (e *Event) SignatureTransactions() [][]byte {
	return e.Body.SignatureTransactions
}

// Hash returns the SHA256 hash of the encoded body
func (e *Event) Hash() ([]byte, error) {
	if len(e.hash) == 0 {
		hash, err := e.Body.Hash()
		if err != nil {
			return nil, err
		}
		e.hash = hash
	}

	return e.hash, nil
}

// Hex returns a hex string representation of the Event's hash
func (e *Event) Hex() string {
	if e.hex == "" {
		hash, _ := e.Hash()
		e.hex = common.EncodeToString(hash)
	}

	return e.hex
}

// Descriptor returns the Event's identity.
func (e *Event) Descriptor() EventDescriptor {
	if e.descriptor == nil {
		e.descriptor = &EventDescriptor{
			Hash:       e.Hex(),
			Creator:    e.Body.Creator,
			BirthRound: e.Body.BirthRound,
		}
	}
	return *e.descriptor
}

// NGen returns the non-deterministic generation of the Event, or
// NGenUndefined if the Event has not been released by an OrphanBuffer.
func (e *Event) NGen() int64 {
	return e.nGen
}

// setNGen assigns the NGen once. Subsequent calls are ignored.
func (e *Event) setNGen(nGen int64) {
	if e.nGen == NGenUndefined {
		e.nGen = nGen
	}
}

// TimeReceived returns the wall-clock time at which the Event entered this
// node.
func (e *Event) TimeReceived() time.Time {
	return e.timeReceived
}

// SetTimeReceived ...
func (e *Event) SetTimeReceived(t time.Time) {
	e.timeReceived = t
}

// Origin ...
func (e *Event) Origin() Origin {
	return e.origin
}

// SetOrigin ...
func (e *Event) SetOrigin(o Origin) {
	e.origin = o
}

// SenderID returns the peer that delivered the Event. For local and stored
// Events it is the ID of this node.
func (e *Event) SenderID() peers.NodeID {
	return e.senderID
}

// SetSenderID ...
func (e *Event) SetSenderID(id peers.NodeID) {
	e.senderID = id
}

// String ...
func (e *Event) String() string {
	return fmt.Sprintf("Event%s ngen=%d", e.Descriptor(), e.nGen)
}
