package engine

// Authority says where a replicated call executes.
type Authority string

const (
	// AuthorityBroadcast calls run on every participant, the sender included.
	AuthorityBroadcast Authority = "broadcast"
	// AuthorityHostOnly calls run only on the host.
	AuthorityHostOnly Authority = "host_only"
	// AuthorityTargeted calls run only on the named recipient.
	AuthorityTargeted Authority = "targeted"
)

type CallKind string

const (
	CallStartSetup            CallKind = "StartSetup"
	CallCheckForColor         CallKind = "CheckForColor"
	CallColorConfirm          CallKind = "ColorConfirm"
	CallStartCountdown        CallKind = "StartCountdown"
	CallStartGame             CallKind = "StartGame"
	CallNotifyWallStateChange CallKind = "NotifyWallStateChange"
	CallGameEnd               CallKind = "GameEnd"
	CallResetGame             CallKind = "ResetGame"
	CallPlayerReady           CallKind = "PlayerReady"
	CallMoveAvatar            CallKind = "MoveAvatar"
	CallAnnounceColor         CallKind = "AnnounceColor"
)

// CallSpec is the routing contract of one call kind. HostIssued calls are
// rejected by receivers when they come from anyone but the host.
type CallSpec struct {
	Authority  Authority
	HostIssued bool
}

var callSpecs = map[CallKind]CallSpec{
	CallStartSetup:            {Authority: AuthorityBroadcast, HostIssued: true},
	CallCheckForColor:         {Authority: AuthorityHostOnly},
	CallColorConfirm:          {Authority: AuthorityTargeted, HostIssued: true},
	CallStartCountdown:        {Authority: AuthorityBroadcast, HostIssued: true},
	CallStartGame:             {Authority: AuthorityBroadcast, HostIssued: true},
	CallNotifyWallStateChange: {Authority: AuthorityBroadcast, HostIssued: true},
	CallGameEnd:               {Authority: AuthorityBroadcast, HostIssued: true},
	CallResetGame:             {Authority: AuthorityBroadcast},
	CallPlayerReady:           {Authority: AuthorityHostOnly},
	CallMoveAvatar:            {Authority: AuthorityBroadcast},
	CallAnnounceColor:         {Authority: AuthorityBroadcast},
}

func SpecFor(k CallKind) (CallSpec, bool) {
	s, ok := callSpecs[k]
	return s, ok
}

// Call is one replicated procedure call.
type Call interface {
	Kind() CallKind
}

type StartSetup struct{}

type CheckForColor struct {
	Color     Color         `json:"color"`
	Requester ParticipantID `json:"requester"`
}

type ColorConfirm struct {
	Color Color `json:"color"`
}

type StartCountdown struct{}

type StartGame struct{}

type NotifyWallStateChange struct {
	Index  int  `json:"index"`
	Active bool `json:"active"`
}

type GameEnd struct{}

type ResetGame struct{}

type PlayerReady struct{}

// MoveAvatar replicates an owner's avatar position.
type MoveAvatar struct {
	Participant ParticipantID `json:"participant"`
	Position    Vec3          `json:"position"`
}

// AnnounceColor tells every replica which colour an owner was confirmed.
type AnnounceColor struct {
	Participant ParticipantID `json:"participant"`
	Color       Color         `json:"color"`
}

func (StartSetup) Kind() CallKind            { return CallStartSetup }
func (CheckForColor) Kind() CallKind         { return CallCheckForColor }
func (ColorConfirm) Kind() CallKind          { return CallColorConfirm }
func (StartCountdown) Kind() CallKind        { return CallStartCountdown }
func (StartGame) Kind() CallKind             { return CallStartGame }
func (NotifyWallStateChange) Kind() CallKind { return CallNotifyWallStateChange }
func (GameEnd) Kind() CallKind               { return CallGameEnd }
func (ResetGame) Kind() CallKind             { return CallResetGame }
func (PlayerReady) Kind() CallKind           { return CallPlayerReady }
func (MoveAvatar) Kind() CallKind            { return CallMoveAvatar }
func (AnnounceColor) Kind() CallKind         { return CallAnnounceColor }

// Replicator is the outbound side of the replication layer as seen by a
// Machine. Implementations must preserve per-sender order.
type Replicator interface {
	// Broadcast executes call on every participant, this one included.
	Broadcast(call Call)
	// SendToHost executes call on the host only.
	SendToHost(call Call)
	// SendTo executes call on participant id only.
	SendTo(id ParticipantID, call Call)
}
