package request

// CreatePlayerRequest is the request body for enrolling a player
type CreatePlayerRequest struct {
	ID     string `json:"id"`
	Region string `json:"region"`
}

// JoinQueueRequest is the request body for joining the queue.
// Region falls back to the player's stored region when empty.
type JoinQueueRequest struct {
	PlayerID     string `json:"player_id"`
	Region       string `json:"region,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
}

// ServerReadyRequest is sent by a game server once it can accept players
type ServerReadyRequest struct {
	ServerAddr string `json:"server_addr"`
}

// ResultRequest reports a match outcome: team1, team2, draw, home or away
type ResultRequest struct {
	Result string `json:"result"`
}

// CreateSessionRequest asks for a session token on a player's behalf
type CreateSessionRequest struct {
	PlayerID string `json:"player_id"`
}
