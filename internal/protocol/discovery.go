package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/mathlan/internal/model"
)

// EncodeAnnouncement serializes a room for a discovery broadcast
func EncodeAnnouncement(room model.RoomInfo) ([]byte, error) {
	return json.Marshal(room)
}

// DecodeAnnouncement parses a discovery datagram. Packets that are not a JSON
// object, or that lack an address or port, are rejected.
func DecodeAnnouncement(data []byte) (model.RoomInfo, error) {
	var room model.RoomInfo
	if err := json.Unmarshal(data, &room); err != nil {
		return model.RoomInfo{}, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	if room.HostIP == "" || room.WsPort <= 0 || room.WsPort > 65535 {
		return model.RoomInfo{}, fmt.Errorf("%w: announcement without address", model.ErrMalformedMessage)
	}
	return room, nil
}
