package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-chat-realtime/internal/domain"
)

// Frames are flat JSON objects whose "type" key names the event:
//
//	{"type":"incoming_call","session_id":"01J...","caller_id":"u1","caller_name":"alice"}

var errNoType = errors.New("frame has no type")

// EncodeFrame renders ev with its event name spliced in as "type".
func EncodeFrame(ev domain.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	name, _ := json.Marshal(ev.EventName())
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: payload is not an object", ev.EventName())
	}
	out := make([]byte, 0, len(body)+len(name)+10)
	out = append(out, `{"type":`...)
	out = append(out, name...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// DecodeFrame returns the event name and the whole frame as its payload.
func DecodeFrame(data []byte) (string, json.RawMessage, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	if head.Type == "" {
		return "", nil, errNoType
	}
	return head.Type, json.RawMessage(data), nil
}

func decodeAs[T domain.Event](data []byte) (domain.Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

var outbound = map[string]func([]byte) (domain.Event, error){
	domain.EventNewMessage:         decodeAs[domain.NewMessageEvent],
	domain.EventMessageSent:        decodeAs[domain.MessageSentEvent],
	domain.EventIncomingCall:       decodeAs[domain.IncomingCallEvent],
	domain.EventCallInitiated:      decodeAs[domain.CallInitiatedEvent],
	domain.EventCallAccepted:       decodeAs[domain.CallAcceptedEvent],
	domain.EventCallRejected:       decodeAs[domain.CallRejectedEvent],
	domain.EventCallStatusChanged:  decodeAs[domain.CallStatusChangedEvent],
	domain.EventFriendStatusChange: decodeAs[domain.FriendStatusChangeEvent],
	domain.EventVideoFrame:         decodeAs[domain.VideoFrameEvent],
	domain.EventJoined:             decodeAs[domain.JoinedEvent],
	domain.EventPong:               decodeAs[domain.PongEvent],
	domain.EventError:              decodeAs[domain.ErrorEvent],
}

// ParseEvent is the client side of EncodeFrame: it turns a server frame back
// into its typed event, ready for call.Tracker.Apply.
func ParseEvent(data []byte) (domain.Event, error) {
	name, _, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	dec, ok := outbound[name]
	if !ok {
		return nil, fmt.Errorf("unknown server event %q", name)
	}
	ev, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}
