package domain

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceChange is emitted once per visible online/offline flip of a user.
type PresenceChange struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}
