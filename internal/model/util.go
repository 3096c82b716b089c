package model

import (
	"encoding/binary"

	"github.com/btcsuite/btcutil/base58"
	"github.com/cespare/xxhash"
	"github.com/google/uuid"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

// Fingerprint identifies a token in logs without revealing it.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := make([]byte, 8)
	binary.BigEndian.PutUint64(sum, xxhash.Sum64String(token))
	return base58.Encode(sum)
}
