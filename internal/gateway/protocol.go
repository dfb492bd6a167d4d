package gateway

import "encoding/json"

// Client -> server event names (§6).
const (
	EvJoinRoom              = "joinRoom"
	EvStartGame              = "startGame"
	EvStartSinglePlayer      = "startSinglePlayer"
	EvPlayerReady            = "playerReady"
	EvRequestGameState       = "requestGameState"
	EvPlayerInput            = "playerInput"
	EvPauseGame              = "pauseGame"
	EvResumeGame             = "resumeGame"
	EvQuitGame               = "quitGame"
	EvChatMessage            = "chatMessage"
	EvTogglePublicRoom       = "togglePublicRoom"
	EvRequestPublicRooms     = "requestPublicRooms"
	EvRequestSessionHistory  = "requestSessionHistory"
	EvUpdateGameOptions      = "updateGameOptions"
	EvRequestGameOptions     = "requestGameOptions"
)

// Length caps the gateway enforces before any component call (§4.8):
// presence of required fields and size caps, never game logic.
const (
	MaxNameLen    = 20
	MaxChatMsgLen = 200
)

// Inbound payload shapes, one per client->server event (§6).

type joinRoomMsg struct {
	PlayerName    string `json:"playerName"`
	RoomCode      string `json:"roomCode"`
	ControlScheme string `json:"controlScheme"`
	PlayerToken   string `json:"playerToken,omitempty"`
}

type startGameMsg struct {
	RoomCode string `json:"roomCode"`
}

type npcConfigMsg struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
	Profile    string `json:"profile"`
}

type startSinglePlayerMsg struct {
	PlayerName    string         `json:"playerName"`
	NPCCount      int            `json:"npcCount"`
	GameMode      string         `json:"gameMode,omitempty"`
	PlayerToken   string         `json:"playerToken,omitempty"`
	ControlScheme string         `json:"controlScheme"`
	GameOptions   struct {
		WallMode *bool `json:"wallMode,omitempty"`
	} `json:"gameOptions"`
	NPCConfigs []npcConfigMsg `json:"npcConfigs,omitempty"`
}

type playerReadyMsg struct {
	RoomCode        string `json:"roomCode"`
	CurrentPlayerID string `json:"currentPlayerId,omitempty"`
}

type requestGameStateMsg struct {
	RoomCode    string `json:"roomCode"`
	PlayerToken string `json:"playerToken,omitempty"`
}

type playerInputMsg struct {
	RoomCode  string `json:"roomCode"`
	Direction string `json:"direction"`
}

type roomCodeMsg struct {
	RoomCode string `json:"roomCode"`
}

type quitGameMsg struct {
	RoomCode  string `json:"roomCode"`
	LeaveType string `json:"leaveType"`
}

type chatMessageMsg struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

type togglePublicRoomMsg struct {
	RoomCode string `json:"roomCode"`
	IsPublic *bool  `json:"isPublic,omitempty"`
}

type updateGameOptionsMsg struct {
	RoomCode string `json:"roomCode"`
	// GameOptions is decoded as a raw object in dispatch.go so the
	// handler can distinguish "timeLimit absent" (leave unchanged) from
	// "timeLimit explicitly null" (clear it), which a typed *int64
	// field can't express on its own.
	GameOptions map[string]json.RawMessage `json:"gameOptions"`
}
