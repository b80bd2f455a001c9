package domain

// Event names pushed over the duplex channel. Clients switch on these.
const (
	EventSessionCreated     = "session_created"
	EventUserJoinedSession  = "user_joined_session"
	EventSessionState       = "session_state"
	EventSessionEnded       = "session_ended"
	EventUserLeftSession    = "user_left_session"
	EventAudioToggled       = "audio_toggled"
	EventVideoToggled       = "video_toggled"
	EventScreenShareStarted = "screen_share_started"
	EventScreenShareStopped = "screen_share_stopped"
	EventScreenShareSignal  = "screen_share_signal"
	EventSignal             = "signal"
	EventSyncEditor         = "sync_editor_operation"
	EventChatMessage        = "chat_message"
	EventInvitation         = "live_exchange_invitation"
	EventInviteAccepted     = "live_exchange_accepted"

	// Error events go back to the originating connection only.
	EventSignalError            = "signal_error"
	EventICECandidateError      = "ice_candidate_error"
	EventScreenShareSignalError = "screen_share_signal_error"
)
