package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows algorithm migration.
const (
	DomainSlot     = "gmslots/slot/v1"
	DomainSnapshot = "gmslots/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalSlot is the digest shape of a slot. UpdatedAt is excluded:
// the digest identifies content, not edit history.
func canonicalSlot(s Slot) map[string]any {
	obj := map[string]any{
		"name":    CleanName(s.Name),
		"enabled": s.Enabled,
		"code":    s.Code,
	}
	if s.Note != "" {
		obj["note"] = s.Note
	}
	if s.PlayersCanRun != nil {
		obj["playersCanRun"] = *s.PlayersCanRun
	}
	return obj
}

// SlotDigest returns the content digest of one slot.
func SlotDigest(s Slot) (string, error) {
	b, err := MarshalCanonical(canonicalSlot(s))
	if err != nil {
		return "", fmt.Errorf("SlotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSlot, b), nil
}

// SnapshotDigest returns the digest of a slot collection.
// The collection is digested in display order, so equal collections
// produce equal digests regardless of input order.
func SnapshotDigest(list []Slot) (string, error) {
	sorted := make([]Slot, len(list))
	copy(sorted, list)
	SortSlots(sorted)

	arr := make([]any, len(sorted))
	for i, s := range sorted {
		arr[i] = canonicalSlot(s)
	}
	b, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, b), nil
}

// MustSlotDigest is SlotDigest for values known to be valid.
func MustSlotDigest(s Slot) string {
	d, err := SlotDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}
