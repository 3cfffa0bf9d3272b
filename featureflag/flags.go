package featureflag

type Flag string

const (
	FlagDisableSessionState              Flag = "DISABLE_SESSION_STATE"
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableEditBroadcast             Flag = "DISABLE_EDIT_BROADCAST"
	FlagDisableClipboard                 Flag = "DISABLE_CLIPBOARD"
)

var knownFlags = map[Flag]struct{}{
	FlagDisableSessionState:              {},
	FlagDisableParticipantJoinBroadcast:  {},
	FlagDisableParticipantLeaveBroadcast: {},
	FlagDisableEditBroadcast:             {},
	FlagDisableClipboard:                 {},
}
