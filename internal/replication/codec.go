package replication

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

type FrameType string

const (
	FrameWelcome FrameType = "welcome"
	FrameCall    FrameType = "call"
)

// Welcome is the first frame a peer receives after attaching.
type Welcome struct {
	ID           engine.ParticipantID   `json:"id"`
	Participants []engine.ParticipantID `json:"participants"`
}

// Frame is one websocket message between a peer and its host.
type Frame struct {
	Type     FrameType `json:"type"`
	Welcome  *Welcome  `json:"welcome,omitempty"`
	Envelope *Envelope `json:"envelope,omitempty"`
}

func EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Type {
	case FrameWelcome:
		if f.Welcome == nil {
			return Frame{}, fmt.Errorf("decode frame: welcome without body")
		}
	case FrameCall:
		if f.Envelope == nil {
			return Frame{}, fmt.Errorf("decode frame: call without envelope")
		}
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown type %q", f.Type)
	}
	return f, nil
}

type wireEnvelope struct {
	From    engine.ParticipantID `json:"from"`
	Target  Target               `json:"target"`
	Call    engine.CallKind      `json:"call"`
	Payload json.RawMessage      `json:"payload,omitempty"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Call == nil {
		return nil, ErrUnknownCall
	}
	payload, err := json.Marshal(e.Call)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{From: e.From, Target: e.Target, Call: e.Call.Kind(), Payload: payload})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decode, ok := decoders[w.Call]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCall, w.Call)
	}
	call, err := decode(w.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", w.Call, err)
	}
	*e = Envelope{From: w.From, Target: w.Target, Call: call}
	return nil
}

var decoders = map[engine.CallKind]func(json.RawMessage) (engine.Call, error){
	engine.CallStartSetup:            decodeAs[engine.StartSetup],
	engine.CallCheckForColor:         decodeAs[engine.CheckForColor],
	engine.CallColorConfirm:          decodeAs[engine.ColorConfirm],
	engine.CallStartCountdown:        decodeAs[engine.StartCountdown],
	engine.CallStartGame:             decodeAs[engine.StartGame],
	engine.CallNotifyWallStateChange: decodeAs[engine.NotifyWallStateChange],
	engine.CallGameEnd:               decodeAs[engine.GameEnd],
	engine.CallResetGame:             decodeAs[engine.ResetGame],
	engine.CallPlayerReady:           decodeAs[engine.PlayerReady],
	engine.CallMoveAvatar:            decodeAs[engine.MoveAvatar],
	engine.CallAnnounceColor:         decodeAs[engine.AnnounceColor],
}

func decodeAs[T engine.Call](raw json.RawMessage) (engine.Call, error) {
	var c T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
