// Package ws carries relay channels over websockets: a Hub that fans
// published frames out to subscribers, and a Client that implements
// relay.Bus against a hub.
//
// Frames are JSON objects with an "op" field:
//
//	hello      client -> hub  {"op":"hello","user":"alice"}
//	welcome    hub -> client  {"op":"welcome","user":"alice"}
//	sub/unsub  client -> hub  {"op":"sub","channel":"module.gm-slots"}
//	subscribed hub -> client  {"op":"subscribed","channel":"..."}
//	pub        client -> hub  {"op":"pub","channel":"...","data":{...}}
//	msg        hub -> client  {"op":"msg","channel":"...","from":"alice","data":{...}}
//
// The hub stamps "from" with the identity given in hello. The hello itself
// is not authenticated: the hub only guarantees one live connection per
// identity, so a second hello for a connected user is closed with a policy
// violation. Receivers must still refuse requests that claim a privileged
// identity. Delivery is at-most-once: a subscriber whose queue is full
// misses the frame.
package ws

import "encoding/json"

// Path is where the hub is mounted.
const Path = "/v1/ws"

const (
	opHello      = "hello"
	opWelcome    = "welcome"
	opSub        = "sub"
	opUnsub      = "unsub"
	opSubscribed = "subscribed"
	opPub        = "pub"
	opMsg        = "msg"
)

type frame struct {
	Op      string          `json:"op"`
	User    string          `json:"user,omitempty"`
	Channel string          `json:"channel,omitempty"`
	From    string          `json:"from,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
