package domain

// Room - комната на двоих: арендатор и владелец
type Room struct {
	RoomChatID     string    `json:"roomChatId"`
	LawanUserEmail string    `json:"lawanUserEmail,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// CreateRoomRequest - тело POST /roomchats
type CreateRoomRequest struct {
	PenyewaID    string `json:"penyewaId"`
	PemilikKosID string `json:"pemilikKosId"`
}
